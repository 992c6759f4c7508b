package stripe

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec_1"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123"}, nil)
	require.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "test"}, nil)
	require.ErrorContains(t, err, "sk_test_")

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "rk_test_123", Secret: " whsec_1 "}, nil)
	require.NoError(t, err)
	require.Equal(t, "test", client.Environment())
	require.Equal(t, "whsec_1", client.SigningSecret())

	client, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_9", Secret: "whsec_2", Env: " Live "}, nil)
	require.NoError(t, err)
	require.Equal(t, "live", client.Environment())
}

func TestBackendConfigAppliesOverrides(t *testing.T) {
	bc := backendConfig(config.StripeConfig{
		APIBase:           "http://localhost:12111/",
		Timeout:           3 * time.Second,
		MaxNetworkRetries: 4,
	}, nil)
	require.Equal(t, "http://localhost:12111", *bc.URL)
	require.Equal(t, 3*time.Second, bc.HTTPClient.Timeout)
	require.Equal(t, int64(4), *bc.MaxNetworkRetries)
	require.Nil(t, bc.LeveledLogger)

	require.Nil(t, backendConfig(config.StripeConfig{}, nil).URL)
}

func TestLeveledLoggerWritesThroughServiceLogger(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: &buf})
	l := leveledLogger{logg: logg}

	l.Infof("request %s", "req_1")
	l.Errorf("failed %d", 500)

	require.Contains(t, buf.String(), "request req_1")
	require.Contains(t, buf.String(), `"sdk_level":"error"`)
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	require.Empty(t, client.Environment())
	require.Empty(t, client.SigningSecret())
}
