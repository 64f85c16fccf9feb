package billing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/modules/billing"
	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/paypal"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

type captureSender struct {
	sent []email.SendEmailParams
}

func (c *captureSender) SendEmail(_ context.Context, params email.SendEmailParams) error {
	c.sent = append(c.sent, params)
	return nil
}

// stubStore serves a single subscription row keyed by user id.
type stubStore struct {
	subscription.Store
	sub *subscription.Subscription
}

func (s *stubStore) FindByUser(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	if s.sub == nil || s.sub.UserID != userID {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return s.sub, nil
}

func testCipher(t *testing.T) subscription.MetadataCipher {
	t.Helper()
	cipher, err := subscription.NewMetadataCipher(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return cipher
}

func encryptedRemote(t *testing.T, cipher subscription.MetadataCipher, remote paypal.Subscription) string {
	t.Helper()
	raw, err := json.Marshal(remote)
	require.NoError(t, err)
	ciphertext, err := cipher.Encrypt(raw)
	require.NoError(t, err)
	return ciphertext
}

func TestActivationNotifier(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	sub := &subscription.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        "P-1",
		ProviderSubID: "I-XYZ",
		Status:        subscription.StatusActive,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	t.Run("sends activation email to resolved address", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := billing.NewActivationNotifier(sender, func(context.Context, uuid.UUID) (string, error) {
			return "subscriber@example.com", nil
		})

		require.NoError(t, notifier.NotifyActivated(context.Background(), sub))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "subscriber@example.com", sender.sent[0].SendTo)
		assert.Equal(t, "subscription-activated", sender.sent[0].Tag)
		assert.Contains(t, sender.sent[0].BodyHTML, "I-XYZ")
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		notifier := billing.NewActivationNotifier(sender, func(context.Context, uuid.UUID) (string, error) {
			return "", subscription.ErrSubscriptionNotFound
		})

		err := notifier.NotifyActivated(context.Background(), sub)
		require.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
		assert.Empty(t, sender.sent)
	})
}

func TestMetadataEmailLookup(t *testing.T) {
	t.Parallel()

	cipher := testCipher(t)
	userID := uuid.New()

	t.Run("resolves email from encrypted provider response", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{sub: &subscription.Subscription{
			UserID: userID,
			Metadata: encryptedRemote(t, cipher, paypal.Subscription{
				ID:         "I-XYZ",
				Subscriber: &paypal.Subscriber{EmailAddress: "subscriber@example.com"},
			}),
		}}

		lookup := billing.MetadataEmailLookup(store, cipher)
		addr, err := lookup(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, "subscriber@example.com", addr)
	})

	t.Run("missing subscriber email", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{sub: &subscription.Subscription{
			UserID:   userID,
			Metadata: encryptedRemote(t, cipher, paypal.Subscription{ID: "I-XYZ"}),
		}}

		lookup := billing.MetadataEmailLookup(store, cipher)
		_, err := lookup(context.Background(), userID)
		assert.ErrorIs(t, err, billing.ErrNoSubscriberEmail)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		lookup := billing.MetadataEmailLookup(&stubStore{}, cipher)
		_, err := lookup(context.Background(), uuid.New())
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}
