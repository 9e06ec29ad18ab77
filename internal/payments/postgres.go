package payments

import (
	"context"
	"database/sql"
	"errors"

	"colschool.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Reconciliation runs in a
// single transaction with a row lock on the payment record so concurrent
// deliveries of the same reference serialize.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const paymentColumns = `id, principal_id, kind, purpose, class, amount, reference, status, initiated_at, updated_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (*Payment, error) {
	var (
		p   Payment
		ref sql.NullString
	)
	err := row.Scan(&p.ID, &p.PrincipalID, &p.Kind, &p.Purpose, &p.Class,
		&p.Amount, &ref, &p.Status, &p.InitiatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		p.Reference = ref.String
	}
	return &p, nil
}

func (s *PGStore) Create(ctx context.Context, p *Payment) error {
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	err := s.db.QueryRowContext(ctx, `
		insert into payments(id, principal_id, kind, purpose, class, amount, reference, status)
		values($1,$2,$3,$4,$5,$6,nullif($7,''),$8)
		returning initiated_at, updated_at`,
		p.ID, p.PrincipalID, p.Kind, p.Purpose, p.Class, p.Amount, p.Reference, p.Status,
	).Scan(&p.InitiatedAt, &p.UpdatedAt)
	return err
}

func (s *PGStore) FindByReference(ctx context.Context, kind Kind, reference string) (*Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx,
		`select `+paymentColumns+` from payments where kind=$1 and reference=$2`,
		kind, reference))
}

func (s *PGStore) ListByPrincipal(ctx context.Context, principalID int64) ([]*Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+paymentColumns+` from payments where principal_id=$1 order by initiated_at asc`,
		principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *PGStore) ApplyChargeSuccess(ctx context.Context, kind Kind, reference string, paidAmount int64) (ReconcileOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the record so duplicate deliveries serialize.
	var (
		id          string
		principalID int64
		expected    int64
		status      Status
	)
	err = tx.QueryRowContext(ctx, `
		select id, principal_id, amount, status from payments
		where kind=$1 and reference=$2 for update`,
		kind, reference,
	).Scan(&id, &principalID, &expected, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ReconcileOutcome{}, ErrRecordNotFound
	}
	if err != nil {
		return ReconcileOutcome{}, err
	}

	out := ReconcileOutcome{
		Reference:   reference,
		Kind:        kind,
		PrincipalID: principalID,
	}

	if status == StatusSuccess {
		out.Status = StatusSuccess
		return out, tx.Commit()
	}

	next := StatusSuccess
	if paidAmount < expected {
		next = StatusNotComplete
	}
	if status != next {
		if _, err := tx.ExecContext(ctx,
			`update payments set status=$2, updated_at=now() where id=$1`,
			id, next); err != nil {
			return ReconcileOutcome{}, err
		}
		out.Changed = true
	}
	out.Status = next

	if next == StatusSuccess && kind == KindRegistration {
		if _, err := tx.ExecContext(ctx,
			`update principals set paid_reg=true, updated_at=now() where id=$1`,
			principalID); err != nil {
			return ReconcileOutcome{}, err
		}
		out.MarkedRegistrationPaid = true
	}

	if err := tx.Commit(); err != nil {
		return ReconcileOutcome{}, err
	}
	return out, nil
}

func (s *PGStore) SetFeeAmount(ctx context.Context, class, purpose string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	_, err := s.db.ExecContext(ctx, `
		insert into fee_amounts(class, purpose, amount)
		values($1,$2,$3)
		on conflict (class, purpose) do update set amount=excluded.amount`,
		class, purpose, amount)
	return err
}

func (s *PGStore) FeeAmount(ctx context.Context, class, purpose string) (int64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx,
		`select amount from fee_amounts where class=$1 and purpose=$2`,
		class, purpose).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}
