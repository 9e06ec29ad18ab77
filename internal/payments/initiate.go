package payments

import (
	"context"
	"strings"
	"time"
)

const (
	registrationPurpose = "registration"
	defaultCurrency     = "NGN"
)

// Initiator opens checkout sessions with the provider and records the
// resulting pending payments. The provider reference is assigned before
// the record is persisted: a failed provider call leaves no record behind.
type Initiator struct {
	store    Store
	provider Provider
	now      func() time.Time
}

// InitiatorOption configures Initiator behavior.
type InitiatorOption func(*Initiator)

// WithInitiatorClock overrides the time source (useful for tests).
func WithInitiatorClock(fn func() time.Time) InitiatorOption {
	return func(i *Initiator) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewInitiator wires the record store with the injected provider client.
func NewInitiator(store Store, provider Provider, opts ...InitiatorOption) *Initiator {
	i := &Initiator{store: store, provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// InitiateRegistration opens a registration-fee checkout for the student.
// A zero amount falls back to the configured registration fee.
func (i *Initiator) InitiateRegistration(ctx context.Context, principalID int64, email string, amount int64) (*Payment, InitializeResponse, error) {
	if amount <= 0 {
		fee, err := i.store.FeeAmount(ctx, "", registrationPurpose)
		if err != nil {
			return nil, InitializeResponse{}, ErrInvalidAmount
		}
		amount = fee
	}
	return i.initiate(ctx, &Payment{
		PrincipalID: principalID,
		Kind:        KindRegistration,
		Purpose:     registrationPurpose,
		Amount:      amount,
	}, email, "REG")
}

// Initiate opens a general fee checkout (commitment, books, ...).
func (i *Initiator) Initiate(ctx context.Context, principalID int64, email, purpose, class string, amount int64) (*Payment, InitializeResponse, error) {
	purpose = strings.ToLower(strings.TrimSpace(purpose))
	if purpose == "" || purpose == registrationPurpose {
		return nil, InitializeResponse{}, ErrInvalidAmount
	}
	if amount <= 0 {
		fee, err := i.store.FeeAmount(ctx, class, purpose)
		if err != nil {
			return nil, InitializeResponse{}, ErrInvalidAmount
		}
		amount = fee
	}
	return i.initiate(ctx, &Payment{
		PrincipalID: principalID,
		Kind:        KindFee,
		Purpose:     purpose,
		Class:       class,
		Amount:      amount,
	}, email, "PAY")
}

func (i *Initiator) initiate(ctx context.Context, p *Payment, email, refPrefix string) (*Payment, InitializeResponse, error) {
	if p.Amount <= 0 {
		return nil, InitializeResponse{}, ErrInvalidAmount
	}
	reference := NewReference(refPrefix, i.now())
	resp, err := i.provider.Initialize(ctx, InitializeRequest{
		Email:     email,
		Amount:    p.Amount,
		Currency:  defaultCurrency,
		Reference: reference,
		Metadata:  map[string]any{"purpose": p.Purpose},
	})
	if err != nil {
		return nil, InitializeResponse{}, err
	}
	if resp.Reference != "" {
		reference = resp.Reference
	}
	p.Reference = reference
	p.Status = StatusPending
	if err := i.store.Create(ctx, p); err != nil {
		return nil, InitializeResponse{}, err
	}
	return p, resp, nil
}
