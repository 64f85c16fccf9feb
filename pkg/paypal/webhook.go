package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// Webhook header names mandated by the provider. All five must be present on
// a genuine event.
const (
	headerTransmissionID   = "Paypal-Transmission-Id"
	headerTransmissionTime = "Paypal-Transmission-Time"
	headerTransmissionSig  = "Paypal-Transmission-Sig"
	headerCertURL          = "Paypal-Cert-Url"
	headerAuthAlgo         = "Paypal-Auth-Algo"
)

// Event is an inbound provider notification in raw form. RawBody must be the
// exact bytes received on the wire; verification fails on re-serialized
// copies because signing covers the byte representation.
type Event struct {
	RawBody          []byte
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

// EventFromRequest captures the raw body and signature headers of an inbound
// webhook delivery. The request body is consumed.
func EventFromRequest(r *http.Request) (Event, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseBytes))
	if err != nil {
		return Event{}, fmt.Errorf("paypal: read webhook body: %w", err)
	}

	return Event{
		RawBody:          body,
		TransmissionID:   r.Header.Get(headerTransmissionID),
		TransmissionTime: r.Header.Get(headerTransmissionTime),
		TransmissionSig:  r.Header.Get(headerTransmissionSig),
		CertURL:          r.Header.Get(headerCertURL),
		AuthAlgo:         r.Header.Get(headerAuthAlgo),
	}, nil
}

// EventPayload is the parsed body of a lifecycle notification.
type EventPayload struct {
	ID         string `json:"id"`
	EventType  string `json:"event_type"`
	ResourceID string
}

// Payload parses the event body. The resource id names a provider
// subscription for BILLING.SUBSCRIPTION.* events.
func (e Event) Payload() (EventPayload, error) {
	var raw struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Resource  struct {
			ID string `json:"id"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(e.RawBody, &raw); err != nil {
		return EventPayload{}, fmt.Errorf("paypal: parse webhook payload: %w", err)
	}

	return EventPayload{
		ID:         raw.ID,
		EventType:  raw.EventType,
		ResourceID: raw.Resource.ID,
	}, nil
}

// DedupKey identifies one delivery for replay detection. The provider event
// id is stable across redeliveries of the same event; the transmission id is
// the fallback when the body carries no id.
func (e Event) DedupKey() string {
	if payload, err := e.Payload(); err == nil && payload.ID != "" {
		return payload.ID
	}
	return e.TransmissionID
}

// Verifier decides whether an inbound event genuinely originates from the
// provider. Implementations may call the provider's verification endpoint or
// check the transmission signature against the certificate locally; the rest
// of the system does not care which.
//
// Verify never returns an error: missing headers, malformed input and
// negative verification all yield false. Rejections are security-relevant
// and are logged with investigation context, never with secret material.
type Verifier interface {
	Verify(ctx context.Context, event Event) bool
}

type verifyWebhookRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyWebhookResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// endpointVerifier verifies events through the provider's own
// verify-webhook-signature endpoint, reusing the client's token cache and
// retry behavior for the call.
type endpointVerifier struct {
	client *Client
	log    *slog.Logger
}

// NewEndpointVerifier returns a Verifier backed by
// POST /v1/notifications/verify-webhook-signature.
func NewEndpointVerifier(client *Client, log *slog.Logger) Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &endpointVerifier{client: client, log: log}
}

func (v *endpointVerifier) Verify(ctx context.Context, e Event) bool {
	if e.TransmissionID == "" || e.TransmissionTime == "" || e.TransmissionSig == "" ||
		e.CertURL == "" || e.AuthAlgo == "" || len(e.RawBody) == 0 {
		v.log.WarnContext(ctx, "webhook event missing signature headers",
			logger.Component("paypal"),
			logger.TransmissionID(e.TransmissionID))
		return false
	}

	req := verifyWebhookRequest{
		AuthAlgo:         e.AuthAlgo,
		CertURL:          e.CertURL,
		TransmissionID:   e.TransmissionID,
		TransmissionSig:  e.TransmissionSig,
		TransmissionTime: e.TransmissionTime,
		WebhookID:        v.client.cfg.WebhookID,
		// The raw bytes go out verbatim; re-encoding the document would
		// break the signature.
		WebhookEvent: json.RawMessage(e.RawBody),
	}

	var resp verifyWebhookResponse
	if err := v.client.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", req, &resp); err != nil {
		v.log.ErrorContext(ctx, "webhook verification call failed",
			logger.Component("paypal"),
			logger.TransmissionID(e.TransmissionID),
			logger.Error(err))
		return false
	}

	if resp.VerificationStatus != "SUCCESS" {
		v.log.WarnContext(ctx, "webhook signature rejected by provider",
			logger.Component("paypal"),
			logger.TransmissionID(e.TransmissionID),
			slog.String("verification_status", resp.VerificationStatus))
		return false
	}

	return true
}
