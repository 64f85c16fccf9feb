package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/billingkit/pkg/paypal"
)

// MockProvider is a mock implementation of Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreatePlan(ctx context.Context, spec paypal.PlanSpec) (*paypal.Plan, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Plan), args.Error(1)
}

func (m *MockProvider) CreateSubscription(ctx context.Context, spec paypal.SubscriptionSpec) (*paypal.Subscription, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Subscription), args.Error(1)
}

func (m *MockProvider) GetSubscription(ctx context.Context, id string) (*paypal.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Subscription), args.Error(1)
}

// MockStore is a mock implementation of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, sub *Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockStore) FindByProviderID(ctx context.Context, providerSubID string) (*Subscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockStore) FindByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Subscription, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Subscription), args.Error(1)
}

// MockDedupStore is a mock implementation of DedupStore.
type MockDedupStore struct {
	mock.Mock
}

func (m *MockDedupStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

// MockVerifier is a mock implementation of paypal.Verifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, event paypal.Event) bool {
	args := m.Called(ctx, event)
	return args.Bool(0)
}

// MockNotifier is a mock implementation of ActivationNotifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyActivated(ctx context.Context, sub *Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}
