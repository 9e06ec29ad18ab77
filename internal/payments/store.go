package payments

import "context"

// Store describes persistence for payment records and the fee schedule.
//
// ApplyChargeSuccess is the single transactional boundary of webhook
// reconciliation: implementations must perform the amount comparison, the
// status write and (for registration records) the paid_reg flip as one
// atomic unit, serializing concurrent deliveries for the same reference.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	FindByReference(ctx context.Context, kind Kind, reference string) (*Payment, error)
	ListByPrincipal(ctx context.Context, principalID int64) ([]*Payment, error)

	// ApplyChargeSuccess applies a charge.success event: paid < expected
	// sets not-complete, otherwise success. An already-success record is
	// left untouched (idempotent replay, Changed=false).
	ApplyChargeSuccess(ctx context.Context, kind Kind, reference string, paidAmount int64) (ReconcileOutcome, error)

	SetFeeAmount(ctx context.Context, class, purpose string, amount int64) error
	FeeAmount(ctx context.Context, class, purpose string) (int64, error)
}

// RegistrationMarker flips a principal's registration-paid flag. The
// in-memory store calls it under its own lock; the Postgres store instead
// updates the principals table inside the reconciliation transaction.
type RegistrationMarker interface {
	MarkRegistrationPaid(ctx context.Context, principalID int64) error
}
