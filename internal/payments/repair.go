package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/amaykorade/zakapay-hackathon/internal/reconciler"
	"github.com/amaykorade/zakapay-hackathon/pkg/enums"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/outbox"
)

const defaultRepairLimit = 200

// RepairPaidDrift marks UNPAID payers holding a SUCCEEDED payment as PAID
// through the regular transition, recomputing their collections. It returns
// how many payers were repaired.
func (s *Service) RepairPaidDrift(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultRepairLimit
	}
	drifted, err := s.repo.ListDriftedPayers(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drifted payers")
	}

	actor := &outbox.ActorRef{Kind: outbox.ActorCron, ID: "payer-drift-repair"}
	repaired := 0
	for _, row := range drifted {
		var applied bool
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			result, err := s.reconciler.TransitionPayer(ctx, tx, reconciler.PayerTransition{
				CollectionID: row.CollectionID,
				PayerID:      row.PayerID,
				To:           enums.PayerStatusPaid,
				Actor:        actor,
			})
			if err != nil {
				return err
			}
			applied = result.Applied
			return nil
		})
		if err != nil {
			return repaired, err
		}
		if applied {
			repaired++
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"collection_id": row.CollectionID.String(),
				"payer_id":      row.PayerID.String(),
			})
			s.logg.Warn(logCtx, "repaired payer status drift")
		}
	}
	return repaired, nil
}
