package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/paypal"
)

// providerStatusActive is the provider-side status confirming approval.
const providerStatusActive = "ACTIVE"

// casAttempts bounds re-reads when a status update loses a race.
const casAttempts = 3

// expireBatchSize caps one stale-sweep pass; the sweep runs periodically,
// leftovers are picked up next time.
const expireBatchSize = 100

// Service defines the public interface for subscription lifecycle management.
type Service interface {
	// CreatePlan registers a billing plan with the provider.
	CreatePlan(ctx context.Context, spec paypal.PlanSpec) (*paypal.Plan, error)

	// Subscribe opens a subscription with the provider and records it
	// locally as pending. The caller redirects the subscriber to the
	// returned approval URL.
	Subscribe(ctx context.Context, req SubscribeRequest) (*Checkout, error)

	// ConfirmApproval corroborates an approval-return callback against the
	// provider and activates the local row. Idempotent; returns
	// ErrNotApproved when the provider does not consider the subscription
	// active yet.
	ConfirmApproval(ctx context.Context, providerSubID string) (*Subscription, error)

	// HandleWebhook applies a verified provider event to local state.
	// A nil return acknowledges the delivery. paypal.ErrSignatureInvalid
	// rejects it; any other error asks the provider to redeliver.
	HandleWebhook(ctx context.Context, event paypal.Event) error

	// ExpireStale sweeps pending subscriptions older than the approval
	// window and returns how many were expired.
	ExpireStale(ctx context.Context, now time.Time) (int, error)

	// GetSubscription returns the user's most recent subscription.
	GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// DecryptMetadata opens the provider response captured at creation time.
	DecryptMetadata(sub *Subscription) ([]byte, error)
}

type service struct {
	cfg      Config
	provider Provider
	verifier paypal.Verifier
	store    Store
	dedup    DedupStore
	cipher   MetadataCipher
	notifier ActivationNotifier
	log      *slog.Logger
}

// NewService creates a Service with the given dependencies.
// Panics if required dependencies are nil to fail fast during initialization;
// a billing service with a missing store or verifier must not start.
func NewService(cfg Config, provider Provider, verifier paypal.Verifier, store Store, dedup DedupStore, cipher MetadataCipher, opts ...ServiceOption) Service {
	if provider == nil {
		panic("subscription: Provider is required")
	}
	if verifier == nil {
		panic("subscription: Verifier is required")
	}
	if store == nil {
		panic("subscription: Store is required")
	}
	if dedup == nil {
		panic("subscription: DedupStore is required")
	}
	if cipher == nil {
		panic("subscription: MetadataCipher is required")
	}

	s := &service{
		cfg:      cfg,
		provider: provider,
		verifier: verifier,
		store:    store,
		dedup:    dedup,
		cipher:   cipher,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreatePlan registers a billing plan with the provider. Plans are not
// persisted locally; the provider is the system of record for the catalog.
func (s *service) CreatePlan(ctx context.Context, spec paypal.PlanSpec) (*paypal.Plan, error) {
	plan, err := s.provider.CreatePlan(ctx, spec)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "billing plan created",
		logger.Component("subscription"),
		logger.PlanID(plan.ID))

	return plan, nil
}

// Subscribe opens a provider subscription and records the pending row. The
// raw provider response is encrypted before it touches storage.
func (s *service) Subscribe(ctx context.Context, req SubscribeRequest) (*Checkout, error) {
	if req.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if req.PlanID == "" {
		return nil, ErrMissingPlanID
	}

	spec := paypal.SubscriptionSpec{
		PlanID:    req.PlanID,
		StartTime: time.Now().UTC().Add(s.cfg.StartDelay),
		BrandName: s.cfg.BrandName,
		ReturnURL: s.cfg.ReturnURL,
		CancelURL: s.cfg.CancelURL,
	}
	if req.Email != "" {
		spec.Subscriber.EmailAddress = req.Email
	}
	if req.GivenName != "" || req.Surname != "" {
		spec.Subscriber.Name = &paypal.SubscriberName{
			GivenName: req.GivenName,
			Surname:   req.Surname,
		}
	}

	remote, err := s.provider.CreateSubscription(ctx, spec)
	if err != nil {
		return nil, err
	}

	approvalURL, ok := remote.ApprovalURL()
	if !ok {
		return nil, paypal.ErrNoApprovalLink
	}

	raw, err := json.Marshal(remote)
	if err != nil {
		return nil, fmt.Errorf("marshal provider response: %w", err)
	}
	metadata, err := s.cipher.Encrypt(raw)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &Subscription{
		ID:            uuid.New(),
		UserID:        req.UserID,
		PlanID:        req.PlanID,
		ProviderSubID: remote.ID,
		Status:        StatusPending,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription created, awaiting approval",
		logger.Component("subscription"),
		logger.SubscriptionID(remote.ID),
		logger.PlanID(req.PlanID))

	return &Checkout{
		SubscriptionID: sub.ID,
		ProviderSubID:  remote.ID,
		ApprovalURL:    approvalURL,
	}, nil
}

// ConfirmApproval handles the subscriber returning from the provider-hosted
// approval page. The callback's query parameters are never trusted: the
// provider is asked directly whether the subscription is active.
func (s *service) ConfirmApproval(ctx context.Context, providerSubID string) (*Subscription, error) {
	sub, err := s.store.FindByProviderID(ctx, providerSubID)
	if err != nil {
		return nil, err
	}
	if sub.Status == StatusActive {
		return sub, nil
	}

	remote, err := s.provider.GetSubscription(ctx, providerSubID)
	if err != nil {
		return nil, err
	}
	if remote.Status != providerStatusActive {
		return nil, ErrNotApproved
	}

	applied, sub, err := s.applyEvent(ctx, providerSubID, EventActivated)
	if err != nil {
		return nil, err
	}
	if applied {
		s.log.InfoContext(ctx, "subscription activated on approval return",
			logger.Component("subscription"),
			logger.SubscriptionID(providerSubID))
		s.notifyActivated(ctx, sub)
	}

	return sub, nil
}

// HandleWebhook verifies, deduplicates and applies one provider delivery.
// Unknown subscriptions and events the lifecycle ignores are acknowledged
// with a log line: rejecting them would only make the provider redeliver
// something that will never apply.
func (s *service) HandleWebhook(ctx context.Context, event paypal.Event) error {
	if !s.verifier.Verify(ctx, event) {
		return paypal.ErrSignatureInvalid
	}

	payload, err := event.Payload()
	if err != nil {
		return errors.Join(ErrMalformedEvent, err)
	}

	lifecycleEvent, ok := eventFromProvider(payload.EventType)
	if !ok {
		s.log.DebugContext(ctx, "webhook event type not handled",
			logger.Component("subscription"),
			logger.EventType(payload.EventType))
		return nil
	}
	if payload.ResourceID == "" {
		s.log.WarnContext(ctx, "webhook event carries no subscription id",
			logger.Component("subscription"),
			logger.EventType(payload.EventType),
			logger.TransmissionID(event.TransmissionID))
		return nil
	}

	applied, sub, err := s.applyEvent(ctx, payload.ResourceID, lifecycleEvent)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			s.log.WarnContext(ctx, "webhook for unknown subscription",
				logger.Component("subscription"),
				logger.EventType(payload.EventType),
				logger.SubscriptionID(payload.ResourceID))
			return nil
		}
		return err
	}

	// Dedup runs after the state change so a failure between the two makes
	// the provider redeliver rather than drop the event. Replayed
	// deliveries fall out at the CAS and never reach the notifier.
	fresh := applied
	if applied {
		fresh, err = s.dedup.MarkProcessed(ctx, event.DedupKey(), s.cfg.DedupTTL)
		if err != nil {
			s.log.ErrorContext(ctx, "webhook dedup store unavailable",
				logger.Component("subscription"),
				logger.SubscriptionID(payload.ResourceID),
				logger.Error(err))
			fresh = true
		}
	}

	if applied {
		s.log.InfoContext(ctx, "subscription transitioned",
			logger.Component("subscription"),
			logger.EventType(payload.EventType),
			logger.SubscriptionID(payload.ResourceID),
			slog.String("status", string(sub.Status)))
	}
	if applied && fresh && sub.Status == StatusActive {
		s.notifyActivated(ctx, sub)
	}

	return nil
}

// ExpireStale expires pending subscriptions whose approval window elapsed.
// Before expiring, the provider is consulted once more: an approval whose
// webhook got lost still activates here instead of being thrown away.
func (s *service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.ApprovalTTL)
	stale, err := s.store.ListPendingBefore(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		sub := &stale[i]

		remote, err := s.provider.GetSubscription(ctx, sub.ProviderSubID)
		switch {
		case err == nil && remote.Status == providerStatusActive:
			applied, activated, err := s.applyEvent(ctx, sub.ProviderSubID, EventActivated)
			if err != nil {
				s.log.ErrorContext(ctx, "late activation failed",
					logger.Component("subscription"),
					logger.SubscriptionID(sub.ProviderSubID),
					logger.Error(err))
				continue
			}
			if applied {
				s.log.InfoContext(ctx, "subscription activated during stale sweep",
					logger.Component("subscription"),
					logger.SubscriptionID(sub.ProviderSubID))
				s.notifyActivated(ctx, activated)
			}
			continue
		case err != nil && !isProviderNotFound(err):
			// Transient provider failure; the next sweep retries this row.
			s.log.ErrorContext(ctx, "stale sweep could not consult provider",
				logger.Component("subscription"),
				logger.SubscriptionID(sub.ProviderSubID),
				logger.Error(err))
			continue
		}

		if err := s.store.UpdateStatus(ctx, sub.ID, StatusPending, StatusExpired); err != nil {
			if !errors.Is(err, ErrStaleStatus) {
				s.log.ErrorContext(ctx, "failed to expire stale subscription",
					logger.Component("subscription"),
					logger.SubscriptionID(sub.ProviderSubID),
					logger.Error(err))
			}
			continue
		}

		expired++
		s.log.InfoContext(ctx, "pending subscription expired",
			logger.Component("subscription"),
			logger.SubscriptionID(sub.ProviderSubID))
	}

	return expired, nil
}

// GetSubscription returns the user's most recent subscription.
func (s *service) GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.FindByUser(ctx, userID)
}

// DecryptMetadata opens the encrypted provider response stored with the row.
func (s *service) DecryptMetadata(sub *Subscription) ([]byte, error) {
	return s.cipher.Decrypt(sub.Metadata)
}

// applyEvent resolves and applies one lifecycle event as a compare-and-swap
// on (id, status). Returns applied=false when the event's effect is already
// in place or the lifecycle ignores it in the current state.
func (s *service) applyEvent(ctx context.Context, providerSubID string, event Event) (bool, *Subscription, error) {
	for i := 0; i < casAttempts; i++ {
		sub, err := s.store.FindByProviderID(ctx, providerSubID)
		if err != nil {
			return false, nil, err
		}

		// Redelivered or out-of-order event whose target state is already
		// reached: nothing to do.
		if sub.Status == targetOf(event) {
			return false, sub, nil
		}

		to, ok := nextStatus(sub.Status, event)
		if !ok {
			s.log.InfoContext(ctx, "lifecycle event ignored in current state",
				logger.Component("subscription"),
				logger.SubscriptionID(providerSubID),
				slog.String("event", string(event)),
				slog.String("status", string(sub.Status)))
			return false, sub, nil
		}

		err = s.store.UpdateStatus(ctx, sub.ID, sub.Status, to)
		if errors.Is(err, ErrStaleStatus) {
			continue // concurrent writer won, re-read and re-evaluate
		}
		if err != nil {
			return false, nil, err
		}

		sub.Status = to
		sub.UpdatedAt = time.Now().UTC()
		return true, sub, nil
	}

	return false, nil, ErrStaleStatus
}

func (s *service) notifyActivated(ctx context.Context, sub *Subscription) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyActivated(ctx, sub); err != nil {
		s.log.ErrorContext(ctx, "activation notification failed",
			logger.Component("subscription"),
			logger.SubscriptionID(sub.ProviderSubID),
			logger.Error(err))
	}
}

func isProviderNotFound(err error) bool {
	var rejected *paypal.RejectedError
	return errors.As(err, &rejected) && rejected.IsNotFound()
}
