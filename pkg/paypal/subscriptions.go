package paypal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SubscriptionSpec describes a subscription to create with the provider.
type SubscriptionSpec struct {
	PlanID     string
	Subscriber Subscriber

	// StartTime must lie in the future to leave room for the approval
	// redirect; the provider rejects past timestamps.
	StartTime time.Time

	BrandName string
	ReturnURL string
	CancelURL string
}

type createSubscriptionRequest struct {
	PlanID             string             `json:"plan_id"`
	StartTime          string             `json:"start_time,omitempty"`
	Subscriber         Subscriber         `json:"subscriber"`
	ApplicationContext ApplicationContext `json:"application_context"`
}

// CreateSubscription opens a subscription with the provider. The returned
// representation carries the approval link the subscriber must visit; the
// subscription stays in APPROVAL_PENDING until they do.
func (c *Client) CreateSubscription(ctx context.Context, spec SubscriptionSpec) (*Subscription, error) {
	if spec.PlanID == "" {
		return nil, fmt.Errorf("paypal: plan id is required")
	}

	req := createSubscriptionRequest{
		PlanID:     spec.PlanID,
		Subscriber: spec.Subscriber,
		ApplicationContext: ApplicationContext{
			BrandName:          spec.BrandName,
			Locale:             "en-US",
			ShippingPreference: "NO_SHIPPING",
			UserAction:         "SUBSCRIBE_NOW",
			PaymentMethod: &PaymentMethod{
				PayerSelected:  "PAYPAL",
				PayeePreferred: "IMMEDIATE_PAYMENT_REQUIRED",
			},
			ReturnURL: spec.ReturnURL,
			CancelURL: spec.CancelURL,
		},
	}
	if !spec.StartTime.IsZero() {
		req.StartTime = spec.StartTime.UTC().Format("2006-01-02T15:04:05Z")
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", req, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

// GetSubscription fetches the provider's current view of a subscription.
// Used to corroborate approval-return callbacks, whose query parameters are
// never trusted on their own.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	if id == "" {
		return nil, fmt.Errorf("paypal: subscription id is required")
	}

	var sub Subscription
	path := "/v1/billing/subscriptions/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}
