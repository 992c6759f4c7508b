package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amaykorade/zakapay-hackathon/api/responses"
	"github.com/amaykorade/zakapay-hackathon/api/validators"
	"github.com/amaykorade/zakapay-hackathon/internal/collections"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/pagination"
)

type CollectionService interface {
	Create(ctx context.Context, input collections.CreateInput) (*collections.CollectionDTO, error)
	List(ctx context.Context, params collections.ListParams) (*collections.ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*collections.CollectionDTO, error)
	PayerBySlug(ctx context.Context, slug string) (*collections.PayerView, error)
	CancelPayer(ctx context.Context, input collections.CancelInput) (*collections.CancelResult, error)
}

// CreateCollection splits the bill and issues one payment link per payer.
func CreateCollection(svc CollectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		var input collections.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Title = validators.TruncateRunes(input.Title, 0)
		for i, name := range input.PayerNames {
			input.PayerNames[i] = validators.TruncateRunes(name, 0)
		}

		collection, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, collection)
	}
}

// ListCollections returns collections newest first, optionally for one creator.
func ListCollections(svc CollectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		limit, err := validators.QueryLimit(r, "limit", pagination.DefaultLimit, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		creatorID, err := validators.QueryUUID(r, "creatorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := validators.QueryCursor(r, "cursor")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), collections.ListParams{
			CreatorID: creatorID,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: cursor,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetCollection(svc CollectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		collectionID, err := uuidParam(r, "collectionId", "collection id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		collection, err := svc.Get(r.Context(), collectionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, collection)
	}
}

// PayerBySlug backs the public payment page.
func PayerBySlug(svc CollectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		slug, err := validators.NormalizeSlug(chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.PayerBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CancelPayment cancels an UNPAID payer and recomputes its collection.
func CancelPayment(svc CollectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		var input collections.CancelInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CancelPayer(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
