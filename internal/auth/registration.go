package auth

import (
	"context"
	"errors"
	"strings"
)

// StudentRegistration is the student self-service sign-up input.
type StudentRegistration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Profile   Profile
}

// TutorRegistration is the admin-issued tutor account input.
type TutorRegistration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterStudent creates a student principal plus their profile as an
// explicit two-step write, then issues a verification token and hands it
// to the notifier. The account stays unverified and unpaid until the
// verification and payment flows complete.
func (s *Service) RegisterStudent(ctx context.Context, in StudentRegistration) (*Principal, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p := &Principal{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         RoleStudent,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	in.Profile.PrincipalID = p.ID
	if err := s.store.CreateProfile(ctx, &in.Profile); err != nil {
		return nil, err
	}
	token, exp, err := s.IssueActionToken(p, PurposeVerifyEmail, 0)
	if err != nil {
		return nil, err
	}
	s.notifier.VerificationIssued(ctx, p, token, exp)
	return p, nil
}

// RegisterTutor creates a tutor account on behalf of an admin. Tutor
// accounts are born verified and active; the notifier forwards the sign-in
// instructions.
func (s *Service) RegisterTutor(ctx context.Context, in TutorRegistration) (*Principal, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p := &Principal{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         RoleTutor,
		PasswordHash: hash,
		Active:       true,
		Staff:        true,
		Verified:     true,
		Approved:     true,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.notifier.TutorAccountCreated(ctx, p, in.Password)
	return p, nil
}

// VerifyEmail consumes a verification token, marks the principal verified
// and issues a session pair so the client can proceed straight to the app.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*Principal, SessionPair, error) {
	claims, err := s.VerifyActionToken(ctx, token, PurposeVerifyEmail)
	if err != nil {
		return nil, SessionPair{}, err
	}
	p, err := s.store.Find(ctx, claims.PrincipalID)
	if err != nil {
		return nil, SessionPair{}, err
	}
	if !p.Verified {
		if err := s.store.MarkVerified(ctx, p.ID); err != nil {
			return nil, SessionPair{}, err
		}
		p.Verified = true
	}
	pair, err := s.IssueSessionPair(p)
	if err != nil {
		return nil, SessionPair{}, err
	}
	return p, pair, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. ErrNotFound and ErrAlreadyVerified are the callers' to map;
// handlers deliberately answer the former with a generic success.
func (s *Service) ResendVerification(ctx context.Context, email string) (*Principal, error) {
	p, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p.Verified {
		return nil, ErrAlreadyVerified
	}
	token, exp, err := s.IssueActionToken(p, PurposeVerifyEmail, 0)
	if err != nil {
		return nil, err
	}
	s.notifier.VerificationIssued(ctx, p, token, exp)
	return p, nil
}

// RequestPasswordReset issues a reset token when the email resolves to a
// verified account. An unknown email is a silent no-op so the endpoint
// cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	p, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !p.Verified {
		return nil
	}
	token, exp, err := s.IssueActionToken(p, PurposeResetPassword, 0)
	if err != nil {
		return err
	}
	s.notifier.PasswordResetIssued(ctx, p, token, exp)
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidInput
	}
	claims, err := s.VerifyActionToken(ctx, token, PurposeResetPassword)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, claims.PrincipalID, hash)
}
