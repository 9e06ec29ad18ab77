package payments

import "errors"

var (
	// ErrInvalidSignature means the webhook body failed the HMAC check.
	// Fail closed: nothing is processed.
	ErrInvalidSignature = errors.New("payments: invalid signature")

	// ErrUnsupportedEvent means the event type is not one we reconcile.
	ErrUnsupportedEvent = errors.New("payments: unsupported event")

	// ErrMalformedEvent means the body did not parse as a webhook event.
	ErrMalformedEvent = errors.New("payments: malformed event")

	// ErrRecordNotFound means no payment record matches the reference.
	// Benign from the provider's point of view: respond 200 so it does
	// not retry.
	ErrRecordNotFound = errors.New("payments: record not found")

	ErrInvalidAmount = errors.New("payments: amount must be positive")
	ErrInvalidKind   = errors.New("payments: unknown payment kind")
	ErrAlreadyExists = errors.New("payments: already exists")
	ErrNotFound      = errors.New("payments: not found")

	// ErrProvider wraps initiation failures reported by the provider.
	ErrProvider = errors.New("payments: provider error")
)
