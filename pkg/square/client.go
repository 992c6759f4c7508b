// Package square wraps the Square Payments API for card settlements and
// carries the webhook signing material.
package square

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	pkgerrors "github.com/amaykorade/zakapay-hackathon/pkg/errors"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

const (
	httpTimeout = 20 * time.Second
	maxAttempts = 3
)

var (
	errAccessTokenRequired   = errors.New("square access token is required")
	errWebhookSecretRequired = errors.New("square webhook secret is required")
	errInvalidSquareEnv      = errors.New(`square environment must be "sandbox" or "production"`)
)

var baseURLs = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, req *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

type Client struct {
	payments      paymentsAPI
	environment   string
	webhookSecret string
	webhookURL    string
	locationID    string
	logg          *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, errWebhookSecretRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(token),
		sqoption.WithHTTPClient(&http.Client{Timeout: httpTimeout}),
		sqoption.WithMaxAttempts(maxAttempts),
	)
	c := &Client{
		payments:      sdk.Payments,
		environment:   env,
		webhookSecret: secret,
		webhookURL:    strings.TrimSpace(cfg.WebhookURL),
		locationID:    strings.TrimSpace(cfg.LocationID),
		logg:          logg,
	}
	logg.Info(logg.WithField(ctx, "square_env", env), "square client configured")
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// NotificationURL is the public URL Square includes in webhook signatures.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.webhookURL
}

// CreatePayment charges a card source. The request's location defaults to
// the configured one. Source ids are never logged.
func (c *Client) CreatePayment(ctx context.Context, in PaymentRequest) (*sq.Payment, error) {
	if in.LocationID == "" {
		in.LocationID = c.locationID
	}
	req, err := in.build()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "square payment request")
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"square_op":    "payments.create",
		"reference_id": in.ReferenceID,
		"amount":       in.Amount,
	})
	start := time.Now()
	resp, err := c.payments.Create(ctx, req)
	logCtx = c.logg.WithField(logCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		mapped := classify(err, "create payment")
		c.logg.Warn(c.logg.WithField(logCtx, "error", mapped.Error()), "square.request_failed")
		return nil, mapped
	}
	payment := resp.GetPayment()
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square create payment returned no payment")
	}
	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"square_payment_id": deref(payment.GetID()),
		"square_status":     deref(payment.GetStatus()),
	}), "square.payment_created")
	return payment, nil
}

// classify maps a Square SDK error onto a domain code. The first Square error
// code, such as CARD_DECLINED, becomes the message so callers can surface it.
func classify(err error, op string) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "square "+op)
	}
	code := codeForStatus(apiErr.StatusCode)
	msg := "square " + op
	details := squareErrors(apiErr)
	for _, e := range details {
		switch {
		case e.Code == sq.ErrorCodeIdempotencyKeyReused:
			code = pkgerrors.CodeIdempotency
		case e.Category == sq.ErrorCategoryAuthenticationError:
			code = pkgerrors.CodeUnauthorized
		case e.Category == sq.ErrorCategoryPaymentMethodError:
			code = pkgerrors.CodeStateConflict
		}
	}
	if len(details) > 0 {
		msg = string(details[0].Code)
	}
	return pkgerrors.Wrap(code, err, msg)
}

// squareErrors decodes the {"errors": [...]} body the SDK keeps as the
// wrapped error text.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(inner.Error()), &body); err != nil {
		return nil
	}
	out := body.Errors[:0]
	for _, e := range body.Errors {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
