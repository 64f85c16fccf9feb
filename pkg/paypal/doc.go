// Package paypal integrates with the PayPal REST API for recurring billing.
//
// The package covers four concerns:
//
//   - Credentials: an immutable Config loaded once at startup holds the
//     client id/secret and webhook id for one environment (sandbox or live).
//   - Token cache: bearer tokens from the client-credentials grant are cached
//     with a safety margin before expiry; concurrent callers serialize on a
//     single critical section so a cold cache mints exactly one token.
//   - Resilient execution: every API call carries an idempotency key that is
//     stable across retries of the same logical operation, retries 5xx and
//     transport failures with exponential backoff and jitter, refreshes the
//     token once on 401, and classifies failures into ErrAuthFailed,
//     *RejectedError and *UnavailableError.
//   - Webhook verification: inbound events are checked through a pluggable
//     Verifier; the default implementation asks the provider's
//     verify-webhook-signature endpoint with the byte-exact raw body.
//
// Error messages never contain credential or token material.
package paypal
