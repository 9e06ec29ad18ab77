package payments

import (
	"context"
	"sync"
	"time"

	"colschool.org/internal/ids"
)

type feeKey struct {
	class   string
	purpose string
}

// InMemory implements Store with in-process concurrency safety. The mutex
// is the transactional boundary: concurrent deliveries of the same event
// serialize rather than interleave.
type InMemory struct {
	mu     sync.Mutex
	byRef  map[Kind]map[string]*Payment
	byID   map[string]*Payment
	fees   map[feeKey]int64
	marker RegistrationMarker
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty payment store. marker may be nil when no
// principal store participates (tests of pure record behavior).
func NewInMemory(marker RegistrationMarker) *InMemory {
	return &InMemory{
		byRef: map[Kind]map[string]*Payment{
			KindRegistration: {},
			KindFee:          {},
		},
		byID:   make(map[string]*Payment),
		fees:   make(map[feeKey]int64),
		marker: marker,
	}
}

func (s *InMemory) Create(ctx context.Context, p *Payment) error {
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.Reference != "" {
		if _, ok := s.byRef[p.Kind][p.Reference]; ok {
			return ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	p.InitiatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.byID[p.ID] = &cp
	if p.Reference != "" {
		s.byRef[p.Kind][p.Reference] = &cp
	}
	return nil
}

func (s *InMemory) FindByReference(ctx context.Context, kind Kind, reference string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byRef[kind][reference]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) ListByPrincipal(ctx context.Context, principalID int64) ([]*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*Payment
	for _, p := range s.byID {
		if p.PrincipalID == principalID {
			cp := *p
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *InMemory) ApplyChargeSuccess(ctx context.Context, kind Kind, reference string, paidAmount int64) (ReconcileOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byRef[kind][reference]
	if !ok {
		return ReconcileOutcome{}, ErrRecordNotFound
	}

	out := ReconcileOutcome{
		Reference:   reference,
		Kind:        kind,
		PrincipalID: p.PrincipalID,
	}

	// success is terminal: replays must not regress it.
	if p.Status == StatusSuccess {
		out.Status = StatusSuccess
		return out, nil
	}

	next := StatusSuccess
	if paidAmount < p.Amount {
		next = StatusNotComplete
	}

	// Flip the flag before touching the record so a marker failure leaves
	// the record untouched rather than half-updated.
	if next == StatusSuccess && kind == KindRegistration && s.marker != nil {
		if err := s.marker.MarkRegistrationPaid(ctx, p.PrincipalID); err != nil {
			return ReconcileOutcome{}, err
		}
		out.MarkedRegistrationPaid = true
	}

	if p.Status != next {
		p.Status = next
		p.UpdatedAt = time.Now().UTC()
		out.Changed = true
	}
	out.Status = next
	return out, nil
}

func (s *InMemory) SetFeeAmount(ctx context.Context, class, purpose string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees[feeKey{class: class, purpose: purpose}] = amount
	return nil
}

func (s *InMemory) FeeAmount(ctx context.Context, class, purpose string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.fees[feeKey{class: class, purpose: purpose}]
	if !ok {
		return 0, ErrNotFound
	}
	return amount, nil
}
