package subscription

import "time"

// Config tunes the subscription service. Loaded from the environment at
// startup.
type Config struct {
	// BrandName is shown on the provider-hosted approval page.
	BrandName string `env:"BILLING_BRAND_NAME,required"`

	// ReturnURL and CancelURL receive the subscriber back from the
	// provider-hosted approval flow.
	ReturnURL string `env:"BILLING_RETURN_URL,required"`
	CancelURL string `env:"BILLING_CANCEL_URL,required"`

	// StartDelay pushes the subscription start time into the future so the
	// approval redirect has room to complete; the provider rejects start
	// times in the past.
	StartDelay time.Duration `env:"BILLING_START_DELAY" envDefault:"5m"`

	// ApprovalTTL bounds how long a pending subscription waits for approval
	// before the stale sweep expires it.
	ApprovalTTL time.Duration `env:"BILLING_APPROVAL_TTL" envDefault:"24h"`

	// DedupTTL is how long processed webhook event ids are remembered.
	// Must exceed the provider's redelivery horizon.
	DedupTTL time.Duration `env:"BILLING_DEDUP_TTL" envDefault:"72h"`
}
