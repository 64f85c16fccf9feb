package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the local lifecycle state of a subscription.
type Status string

const (
	// StatusPending is the state between checkout and the subscriber's
	// approval at the provider. Pending rows that never get approved are
	// expired by the stale sweep.
	StatusPending Status = "pending"

	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"

	// StatusCancelled and StatusExpired are terminal; no event moves a
	// subscription out of them.
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Event is a normalized lifecycle event. Provider webhook event types map
// onto these; everything the provider sends outside this set is acknowledged
// and ignored.
type Event string

const (
	EventActivated Event = "activated"
	EventSuspended Event = "suspended"
	EventCancelled Event = "cancelled"
	EventExpired   Event = "expired"
)

// eventFromProvider maps a provider webhook event type onto a lifecycle
// event. The second return is false for event types this system does not
// react to.
func eventFromProvider(eventType string) (Event, bool) {
	switch eventType {
	case "BILLING.SUBSCRIPTION.ACTIVATED":
		return EventActivated, true
	case "BILLING.SUBSCRIPTION.SUSPENDED":
		return EventSuspended, true
	case "BILLING.SUBSCRIPTION.CANCELLED":
		return EventCancelled, true
	case "BILLING.SUBSCRIPTION.EXPIRED":
		return EventExpired, true
	default:
		return "", false
	}
}

// Subscription is one user's recurring billing agreement. ProviderSubID is
// unique across rows: the provider's subscription id is the join key between
// webhook deliveries and local state.
type Subscription struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PlanID        string // provider's plan id
	ProviderSubID string
	Status        Status

	// Metadata is the encrypted provider response captured at creation
	// time. Opaque at rest; decrypt through the service's cipher.
	Metadata string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsTerminal reports whether the subscription reached a final state.
func (s *Subscription) IsTerminal() bool {
	return s.Status == StatusCancelled || s.Status == StatusExpired
}

// Checkout is the outcome of starting a subscription: the local pending row
// plus the provider-hosted approval URL the subscriber must visit.
type Checkout struct {
	SubscriptionID uuid.UUID
	ProviderSubID  string
	ApprovalURL    string
}

// SubscribeRequest describes a new subscription to open.
type SubscribeRequest struct {
	UserID    uuid.UUID
	PlanID    string
	Email     string
	GivenName string
	Surname   string
}
