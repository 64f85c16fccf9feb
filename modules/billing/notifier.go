package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/email"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// ErrNoSubscriberEmail is returned when the stored provider response carries
// no subscriber email address to notify.
var ErrNoSubscriberEmail = errors.New("no subscriber email on record")

// UserEmailLookup resolves a user id to their email address. Billing does
// not own the users table; the host application supplies this.
type UserEmailLookup func(ctx context.Context, userID uuid.UUID) (string, error)

// emailNotifier sends the activation email. The service already guarantees
// at-most-once delivery per webhook event; this type only formats and sends.
type emailNotifier struct {
	sender email.EmailSender
	lookup UserEmailLookup
}

// NewActivationNotifier creates an email-backed activation notifier.
func NewActivationNotifier(sender email.EmailSender, lookup UserEmailLookup) subscription.ActivationNotifier {
	if sender == nil {
		panic("billing: email.EmailSender is required")
	}
	if lookup == nil {
		panic("billing: UserEmailLookup is required")
	}
	return &emailNotifier{sender: sender, lookup: lookup}
}

func (n *emailNotifier) NotifyActivated(ctx context.Context, sub *subscription.Subscription) error {
	sendTo, err := n.lookup(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("resolve user email: %w", err)
	}

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   sendTo,
		Subject:  "Your subscription is active",
		BodyHTML: activationBody(sub),
		Tag:      "subscription-activated",
	})
}

// MetadataEmailLookup resolves the subscriber email from the encrypted
// provider response captured at checkout. Use it when the deployment has no
// user directory of its own; applications with a users table should supply
// their own UserEmailLookup instead.
func MetadataEmailLookup(store subscription.Store, cipher subscription.MetadataCipher) UserEmailLookup {
	if store == nil {
		panic("billing: subscription.Store is required")
	}
	if cipher == nil {
		panic("billing: subscription.MetadataCipher is required")
	}
	return func(ctx context.Context, userID uuid.UUID) (string, error) {
		sub, err := store.FindByUser(ctx, userID)
		if err != nil {
			return "", err
		}
		raw, err := cipher.Decrypt(sub.Metadata)
		if err != nil {
			return "", err
		}

		var remote struct {
			Subscriber struct {
				EmailAddress string `json:"email_address"`
			} `json:"subscriber"`
		}
		if err := json.Unmarshal(raw, &remote); err != nil {
			return "", fmt.Errorf("decode provider response: %w", err)
		}
		if remote.Subscriber.EmailAddress == "" {
			return "", ErrNoSubscriberEmail
		}
		return remote.Subscriber.EmailAddress, nil
	}
}

func activationBody(sub *subscription.Subscription) string {
	return fmt.Sprintf(
		`<p>Your subscription is now active.</p><p>Reference: %s</p>`,
		sub.ProviderSubID,
	)
}
