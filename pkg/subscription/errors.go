package subscription

import "errors"

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")

	// ErrStaleStatus is returned by Store.UpdateStatus when the row's status
	// no longer matches the expected one. Callers re-read and re-evaluate;
	// a concurrent writer got there first.
	ErrStaleStatus = errors.New("subscription status changed concurrently")

	// ErrNotApproved means the provider does not yet consider the
	// subscription active, so a return-callback claim of approval could not
	// be corroborated.
	ErrNotApproved = errors.New("subscription not approved by provider")

	ErrMissingPlanID = errors.New("plan id is required")
	ErrMissingUserID = errors.New("user id is required")

	// ErrMalformedEvent marks a verified webhook delivery whose body could
	// not be parsed. Redelivery of the same bytes cannot help.
	ErrMalformedEvent = errors.New("malformed webhook event")

	ErrFailedToEncryptMetadata = errors.New("failed to encrypt subscription metadata")
	ErrFailedToDecryptMetadata = errors.New("failed to decrypt subscription metadata")
)
