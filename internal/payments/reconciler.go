package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

const eventChargeSuccess = "charge.success"

var errMissingProviderSecret = errors.New("payments: provider secret is not configured")

// Reconciler authenticates inbound provider callbacks and applies
// at-most-once status transitions to payment records.
type Reconciler struct {
	store  Store
	secret []byte
}

// NewReconciler constructs a Reconciler. A missing shared secret is a
// configuration fault callers must treat as fatal at startup.
func NewReconciler(store Store, secret string) (*Reconciler, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingProviderSecret
	}
	return &Reconciler{store: store, secret: []byte(secret)}, nil
}

// Signature computes the hex HMAC-SHA512 of the raw body under the shared
// secret. Deterministic: identical (body, secret) always yields the same
// digest.
func (r *Reconciler) Signature(rawBody []byte) string {
	mac := hmac.New(sha512.New, r.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the header-supplied signature against the HMAC of
// the raw, unparsed request body. Re-serialized bodies would not match, so
// callers must pass the exact bytes received on the wire. Constant-time
// comparison; fails closed on any mismatch.
func (r *Reconciler) VerifySignature(rawBody []byte, signature string) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return false
	}
	expected := r.Signature(rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Reconcile verifies and applies one webhook delivery.
//
// Only charge.success events are processed; anything else is
// ErrUnsupportedEvent. A reference with no matching record is
// ErrRecordNotFound, which callers should treat as a benign no-op (the
// provider retries on error responses). The check-and-set itself happens
// inside the store's transactional boundary.
func (r *Reconciler) Reconcile(ctx context.Context, rawBody []byte, signature string) (ReconcileOutcome, error) {
	if !r.VerifySignature(rawBody, signature) {
		return ReconcileOutcome{}, ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return ReconcileOutcome{}, ErrMalformedEvent
	}
	if event.Event != eventChargeSuccess {
		return ReconcileOutcome{}, ErrUnsupportedEvent
	}
	if event.Data.Reference == "" {
		return ReconcileOutcome{}, ErrMalformedEvent
	}

	kind := KindForPurpose(event.Data.Metadata.Purpose)
	return r.store.ApplyChargeSuccess(ctx, kind, event.Data.Reference, event.Data.Amount)
}
