package subscription

import (
	"context"

	"github.com/dmitrymomot/billingkit/pkg/paypal"
)

// Provider is the slice of the payment provider this service needs.
// *paypal.Client satisfies it; tests substitute mocks.
type Provider interface {
	CreatePlan(ctx context.Context, spec paypal.PlanSpec) (*paypal.Plan, error)
	CreateSubscription(ctx context.Context, spec paypal.SubscriptionSpec) (*paypal.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*paypal.Subscription, error)
}

// MetadataCipher protects the provider response stored with each
// subscription. The service never persists plaintext metadata.
type MetadataCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// ActivationNotifier is told when a subscription becomes active for the
// first time per event. Notification failures are logged, never propagated:
// billing state must not depend on delivery of a courtesy email.
type ActivationNotifier interface {
	NotifyActivated(ctx context.Context, sub *Subscription) error
}
