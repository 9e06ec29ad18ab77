package auth

import (
	"context"
	"errors"
)

// Login runs the role-scoped precondition state machine and issues a
// session pair on the terminal success state. Checks run in a fixed order
// and short-circuit on the first failure:
//
//	credentials -> role -> verified -> active -> registration fee (students)
//
// Each denial is a typed, non-fatal outcome.
func (s *Service) Login(ctx context.Context, role Role, email, password string) (SessionPair, *Principal, error) {
	p, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SessionPair{}, nil, ErrInvalidCredentials
		}
		return SessionPair{}, nil, err
	}
	if err := VerifyPassword(p.PasswordHash, password); err != nil {
		return SessionPair{}, nil, ErrInvalidCredentials
	}
	if p.Role != role {
		return SessionPair{}, nil, ErrWrongAccountType
	}
	if !p.Verified {
		return SessionPair{}, nil, ErrEmailNotVerified
	}
	if !p.Active {
		return SessionPair{}, nil, ErrAccountDeactivated
	}
	if p.Role == RoleStudent && !p.PaidReg {
		return SessionPair{}, nil, ErrRegistrationFeeRequired
	}
	pair, err := s.IssueSessionPair(p)
	if err != nil {
		return SessionPair{}, nil, err
	}
	return pair, p, nil
}
