package paypal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/config"
	"github.com/dmitrymomot/billingkit/pkg/paypal"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := paypal.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		WebhookID:    "WH-123",
		Mode:         paypal.ModeSandbox,
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid.Validate())
	})

	t.Run("missing fields are reported individually", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			mutate func(*paypal.Config)
			want   error
		}{
			{func(c *paypal.Config) { c.ClientID = "" }, paypal.ErrMissingClientID},
			{func(c *paypal.Config) { c.ClientSecret = "" }, paypal.ErrMissingClientSecret},
			{func(c *paypal.Config) { c.WebhookID = "" }, paypal.ErrMissingWebhookID},
			{func(c *paypal.Config) { c.Mode = "staging" }, paypal.ErrInvalidMode},
		}
		for _, tc := range cases {
			cfg := valid
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		}
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "client-id")
	t.Setenv("PAYPAL_CLIENT_SECRET", "client-secret")
	t.Setenv("PAYPAL_WEBHOOK_ID", "WH-123")

	var cfg paypal.Config
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, paypal.ModeSandbox, cfg.Mode)
	assert.Equal(t, "15s", cfg.Timeout.String())
	assert.Equal(t, 3, cfg.MaxRetries)
}
