package billing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/modules/billing"
	"github.com/dmitrymomot/billingkit/pkg/paypal"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// MockService is a mock implementation of subscription.Service.
type MockService struct {
	mock.Mock
}

func (m *MockService) CreatePlan(ctx context.Context, spec paypal.PlanSpec) (*paypal.Plan, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Plan), args.Error(1)
}

func (m *MockService) Subscribe(ctx context.Context, req subscription.SubscribeRequest) (*subscription.Checkout, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Checkout), args.Error(1)
}

func (m *MockService) ConfirmApproval(ctx context.Context, providerSubID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockService) HandleWebhook(ctx context.Context, event paypal.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockService) GetSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockService) DecryptMetadata(sub *subscription.Subscription) ([]byte, error) {
	args := m.Called(sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newTestServer(t *testing.T) (*httptest.Server, *MockService) {
	t.Helper()
	svc := new(MockService)
	srv := httptest.NewServer(billing.Router(svc, nil))
	t.Cleanup(srv.Close)
	return srv, svc
}

func postWebhook(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/paypal", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Paypal-Transmission-Id", "tx-1")
	req.Header.Set("Paypal-Transmission-Time", "2026-08-28T12:00:00Z")
	req.Header.Set("Paypal-Transmission-Sig", "c2ln")
	req.Header.Set("Paypal-Cert-Url", "https://api.sandbox.paypal.com/cert.pem")
	req.Header.Set("Paypal-Auth-Algo", "SHA256withRSA")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()

	const body = `{"id":"WH-EVT-1","event_type":"BILLING.SUBSCRIPTION.ACTIVATED","resource":{"id":"I-XYZ"}}`

	t.Run("acknowledged delivery returns 200", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("HandleWebhook", mock.Anything, mock.MatchedBy(func(e paypal.Event) bool {
			return string(e.RawBody) == body && e.TransmissionID == "tx-1"
		})).Return(nil)

		resp := postWebhook(t, srv, body)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid signature returns 403 with an empty body", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("HandleWebhook", mock.Anything, mock.Anything).Return(paypal.ErrSignatureInvalid)

		resp := postWebhook(t, srv, body)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Empty(t, payload, "rejection carries no detail for the sender")
	})

	t.Run("malformed event returns 400", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("HandleWebhook", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: bad json", subscription.ErrMalformedEvent))

		resp := postWebhook(t, srv, "not json")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("transient failure returns 500 so the provider redelivers", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("HandleWebhook", mock.Anything, mock.Anything).Return(fmt.Errorf("db down"))

		resp := postWebhook(t, srv, body)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestSubscribeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the approval url", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		userID := uuid.New()
		subID := uuid.New()

		svc.On("Subscribe", mock.Anything, subscription.SubscribeRequest{
			UserID: userID,
			PlanID: "P-PREMIUM",
			Email:  "ada@example.com",
		}).Return(&subscription.Checkout{
			SubscriptionID: subID,
			ProviderSubID:  "I-XYZ",
			ApprovalURL:    "https://www.sandbox.paypal.com/approve?ba_token=BA-1",
		}, nil)

		body := fmt.Sprintf(`{"user_id":%q,"plan_id":"P-PREMIUM","email":"ada@example.com"}`, userID)
		resp, err := http.Post(srv.URL+"/subscriptions/", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var got map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, subID.String(), got["subscription_id"])
		assert.Equal(t, "https://www.sandbox.paypal.com/approve?ba_token=BA-1", got["approval_url"])
	})

	t.Run("missing plan id returns 400", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("Subscribe", mock.Anything, mock.Anything).Return(nil, subscription.ErrMissingPlanID)

		body := fmt.Sprintf(`{"user_id":%q}`, uuid.New())
		resp, err := http.Post(srv.URL+"/subscriptions/", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("provider outage returns 502", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("Subscribe", mock.Anything, mock.Anything).
			Return(nil, &paypal.UnavailableError{LastStatus: 503})

		body := fmt.Sprintf(`{"user_id":%q,"plan_id":"P-PREMIUM"}`, uuid.New())
		resp, err := http.Post(srv.URL+"/subscriptions/", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestApprovalReturnEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("confirms and reports the status", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("ConfirmApproval", mock.Anything, "I-XYZ").Return(&subscription.Subscription{
			ProviderSubID: "I-XYZ",
			Status:        subscription.StatusActive,
		}, nil)

		resp, err := http.Get(srv.URL + "/subscriptions/return?subscription_id=I-XYZ&ba_token=BA-1")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "active", got["status"])
	})

	t.Run("uncorroborated approval returns 409", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("ConfirmApproval", mock.Anything, "I-XYZ").Return(nil, subscription.ErrNotApproved)

		resp, err := http.Get(srv.URL + "/subscriptions/return?subscription_id=I-XYZ")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown subscription returns 404", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("ConfirmApproval", mock.Anything, "I-GHOST").Return(nil, subscription.ErrSubscriptionNotFound)

		resp, err := http.Get(srv.URL + "/subscriptions/return?subscription_id=I-GHOST")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing subscription id returns 400", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)

		resp, err := http.Get(srv.URL + "/subscriptions/return")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		svc.AssertNotCalled(t, "ConfirmApproval", mock.Anything, mock.Anything)
	})

	t.Run("cancel callback acknowledges without state changes", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)

		resp, err := http.Get(srv.URL + "/subscriptions/cancel?subscription_id=I-XYZ")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertNotCalled(t, "ConfirmApproval", mock.Anything, mock.Anything)
	})
}

func TestCreatePlanEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("creates a plan", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("CreatePlan", mock.Anything, paypal.PlanSpec{
			Name: "Premium", Price: 29.99, Currency: "USD", Interval: "MONTH",
		}).Return(&paypal.Plan{ID: "P-PREMIUM", Status: "ACTIVE"}, nil)

		body := `{"name":"Premium","price":29.99,"currency":"USD","interval":"MONTH"}`
		resp, err := http.Post(srv.URL+"/plans", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var got map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "P-PREMIUM", got["plan_id"])
	})

	t.Run("provider rejection returns 422 without provider detail", func(t *testing.T) {
		t.Parallel()
		srv, svc := newTestServer(t)
		svc.On("CreatePlan", mock.Anything, mock.Anything).
			Return(nil, &paypal.RejectedError{Status: 422, Name: "UNPROCESSABLE_ENTITY", Message: "secret detail"})

		body := `{"name":"Premium","price":29.99,"currency":"USD","interval":"MONTH"}`
		resp, err := http.Post(srv.URL+"/plans", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(payload), "secret detail")
	})
}
