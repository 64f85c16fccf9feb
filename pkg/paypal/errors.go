package paypal

import (
	"errors"
	"fmt"
)

var (
	ErrMissingClientID     = errors.New("paypal: client id is required")
	ErrMissingClientSecret = errors.New("paypal: client secret is required")
	ErrMissingWebhookID    = errors.New("paypal: webhook id is required")
	ErrInvalidMode         = errors.New("paypal: mode must be sandbox or live")

	// ErrAuthFailed means the provider rejected our credentials or a freshly
	// minted token. Fatal to the calling operation; retrying bad credentials
	// is pointless.
	ErrAuthFailed = errors.New("paypal: authentication failed")

	// ErrNoApprovalLink means the provider response carried no approve
	// relation in its links collection.
	ErrNoApprovalLink = errors.New("paypal: no approval link in provider response")

	// ErrMalformedResponse means the provider accepted the request but
	// answered with a document that could not be decoded. Not retryable: the
	// remote side effect may already exist, repeating the call cannot repair
	// the response.
	ErrMalformedResponse = errors.New("paypal: undecodable provider response")

	// ErrSignatureInvalid marks an inbound event that failed webhook
	// verification. The reason is logged internally and never surfaced to
	// the sender.
	ErrSignatureInvalid = errors.New("paypal: webhook signature verification failed")
)

// RejectedError is a non-retryable 4xx response (other than 401): the request
// itself is at fault and repeating it cannot help. The message comes from the
// provider's error document and carries no credential material.
type RejectedError struct {
	Status  int
	Name    string // provider error name, e.g. INVALID_REQUEST
	Message string
	DebugID string // provider correlation id for support tickets
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("paypal: request rejected with status %d (%s, debug id %q): %s",
		e.Status, e.Name, e.DebugID, e.Message)
}

// IsNotFound reports whether the provider rejected the request because the
// resource does not exist.
func (e *RejectedError) IsNotFound() bool {
	return e.Status == 404
}

// UnavailableError is returned after the retry budget is exhausted on 5xx
// responses or transport failures. It is a transient condition; the caller
// may retry the whole operation later.
type UnavailableError struct {
	LastStatus int   // zero when the last failure never produced a response
	LastErr    error // last observed transport or server error
}

func (e *UnavailableError) Error() string {
	if e.LastStatus > 0 {
		return fmt.Sprintf("paypal: provider unavailable after retries, last status %d: %v", e.LastStatus, e.LastErr)
	}
	return fmt.Sprintf("paypal: provider unavailable after retries: %v", e.LastErr)
}

func (e *UnavailableError) Unwrap() error { return e.LastErr }
