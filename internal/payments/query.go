package payments

import "context"

// ListByPrincipal returns the principal's payment records.
func (i *Initiator) ListByPrincipal(ctx context.Context, principalID int64) ([]*Payment, error) {
	return i.store.ListByPrincipal(ctx, principalID)
}

// SetFeeAmount upserts a fee schedule entry in minor units.
func (i *Initiator) SetFeeAmount(ctx context.Context, class, purpose string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return i.store.SetFeeAmount(ctx, class, purpose, amount)
}

// FeeAmount resolves a fee schedule entry.
func (i *Initiator) FeeAmount(ctx context.Context, class, purpose string) (int64, error) {
	return i.store.FeeAmount(ctx, class, purpose)
}
