package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines subscription persistence. ProviderSubID carries a unique
// constraint; it is the key webhook deliveries arrive with.
type Store interface {
	// Create inserts a new subscription row.
	// Returns ErrSubscriptionAlreadyExists when the provider subscription id
	// is already taken.
	Create(ctx context.Context, sub *Subscription) error

	// FindByProviderID looks a subscription up by the provider's id.
	// Returns ErrSubscriptionNotFound if no row matches.
	FindByProviderID(ctx context.Context, providerSubID string) (*Subscription, error)

	// FindByUser returns the most recent subscription of a user.
	// Returns ErrSubscriptionNotFound if the user has none.
	FindByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// UpdateStatus moves a subscription from one status to another as a
	// compare-and-swap on (id, from). Returns ErrStaleStatus when the row is
	// no longer in the expected status, ErrSubscriptionNotFound when the id
	// does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	// ListPendingBefore returns up to limit pending subscriptions created
	// before the cutoff, oldest first. Feeds the stale-approval sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Subscription, error)
}

// DedupStore remembers which webhook deliveries already ran their side
// effects. State changes are idempotent on their own; dedup exists so
// redeliveries do not repeat notifications.
type DedupStore interface {
	// MarkProcessed records an event id and reports whether this call was
	// the first to see it. Entries expire after ttl; the provider stops
	// redelivering long before that.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}
