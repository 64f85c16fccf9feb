package paypal

import "time"

// Mode selects the PayPal environment a credential set belongs to.
type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

// Config holds the provider credentials and client tuning. It is loaded once
// at startup and treated as immutable for the process lifetime. The client
// secret and webhook id are secret material and must never appear in logs or
// API responses.
type Config struct {
	ClientID     string `env:"PAYPAL_CLIENT_ID,required"`
	ClientSecret string `env:"PAYPAL_CLIENT_SECRET,required"`
	WebhookID    string `env:"PAYPAL_WEBHOOK_ID,required"`
	Mode         Mode   `env:"PAYPAL_MODE" envDefault:"sandbox"`

	// BaseURL overrides the mode-derived API host. Intended for tests.
	BaseURL string `env:"PAYPAL_BASE_URL"`

	Timeout    time.Duration `env:"PAYPAL_HTTP_TIMEOUT" envDefault:"15s"` // per attempt, independent of the retry budget
	MaxRetries int           `env:"PAYPAL_MAX_RETRIES" envDefault:"3"`
}

func (c Config) apiBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Mode == ModeLive {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

// Validate reports configuration errors that would otherwise surface as
// confusing authentication failures at request time.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.WebhookID == "" {
		return ErrMissingWebhookID
	}
	if c.Mode != ModeSandbox && c.Mode != ModeLive {
		return ErrInvalidMode
	}
	return nil
}
