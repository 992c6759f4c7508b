// Package stripe configures the process-wide Stripe backend used by the
// payment adapter and holds the webhook signing secret.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = errors.New(`stripe environment must be "test" or "live"`)
)

// keyPrefixes lists the secret and restricted key prefixes accepted per mode.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

type Client struct {
	environment   string
	signingSecret string
}

// NewClient validates the key against the configured mode and installs the
// API backend with the configured timeout, retries and base URL.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, errInvalidStripeEnv
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	if !hasAnyPrefix(apiKey, prefixes) {
		return nil, fmt.Errorf("stripe %s mode requires a key starting with %s", env, strings.Join(prefixes, " or "))
	}

	stripe.Key = apiKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig(cfg, logg)))

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe backend configured")
	}
	return &Client{environment: env, signingSecret: secret}, nil
}

func backendConfig(cfg config.StripeConfig, logg *logger.Logger) *stripe.BackendConfig {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/"); base != "" {
		bc.URL = stripe.String(base)
	}
	if logg != nil {
		bc.LeveledLogger = leveledLogger{logg: logg}
	}
	return bc
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
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
	return c.signingSecret
}

// leveledLogger routes the SDK's own diagnostics into the service logger.
// SDK info lines are demoted to debug. SDK errors surface to the caller as
// well, so they are logged at warn without a stack.
type leveledLogger struct {
	logg *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...any) {
	l.logg.Debug(context.Background(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...any) {
	l.logg.Debug(context.Background(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...any) {
	l.logg.Warn(context.Background(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...any) {
	ctx := l.logg.WithField(context.Background(), "sdk_level", "error")
	l.logg.Warn(ctx, fmt.Sprintf(format, v...))
}
