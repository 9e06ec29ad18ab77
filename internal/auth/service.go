package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 72 * time.Hour
	defaultActionTTL  = 24 * time.Hour
)

var errMissingSecret = errors.New("auth: signing secret is not configured")

// Purpose discriminates what a token is good for. A token issued for one
// purpose never verifies for another.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// Claims is the signed token payload: subject identity plus the purpose
// discriminator. Tokens are immutable value objects once issued.
type Claims struct {
	PrincipalID int64   `json:"id"`
	Email       string  `json:"email"`
	Role        Role    `json:"role"`
	Purpose     Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionPair is the access + refresh credential set issued after all
// login precondition checks pass.
type SessionPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service issues, verifies and refreshes bearer credentials, and owns the
// login precondition state machine. Token operations are stateless and
// safe for concurrent use.
type Service struct {
	store    Store
	notifier Notifier
	secret   []byte
	issuer   string
	now      func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
	actionTTL  time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) { s.issuer = strings.TrimSpace(issuer) }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithActionTTL configures the default lifetime of verification and
// password-reset tokens.
func WithActionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.actionTTL = ttl
		}
	}
}

// WithNotifier sets the outbound notification collaborator.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewService constructs the token service. A missing signing secret is a
// configuration fault: callers must treat it as fatal at startup.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	svc := &Service{
		store:      store,
		notifier:   NopNotifier{},
		secret:     []byte(secret),
		issuer:     "colschool",
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		actionTTL:  defaultActionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IssueActionToken signs a single-purpose token for the principal. A
// non-positive ttl falls back to the configured action TTL (24h). Pure:
// no side effect beyond token construction.
func (s *Service) IssueActionToken(p *Principal, purpose Purpose, ttl time.Duration) (string, time.Time, error) {
	if p == nil || p.ID <= 0 {
		return "", time.Time{}, fmt.Errorf("auth: principal has no resolvable identifier")
	}
	if ttl <= 0 {
		ttl = s.actionTTL
	}
	return s.sign(p, purpose, ttl)
}

func (s *Service) sign(p *Principal, purpose Purpose, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		PrincipalID: p.ID,
		Email:       p.Email,
		Role:        p.Role,
		Purpose:     purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// decode verifies the signature and time bounds and returns the embedded
// claims. Failures map onto the typed token outcomes.
func (s *Service) decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenMalformed
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.PrincipalID <= 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyActionToken resolves a single-purpose token back to its claims.
// It fails with ErrTokenExpired past the embedded expiry, ErrTokenMalformed
// when the signature or payload does not check out, and
// ErrPrincipalNotFound when the subject no longer resolves. No side
// effects: applying state changes is the caller's concern.
func (s *Service) VerifyActionToken(ctx context.Context, token string, want Purpose) (*Claims, error) {
	claims, err := s.decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != want {
		return nil, ErrTokenMalformed
	}
	if _, err := s.store.Find(ctx, claims.PrincipalID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return claims, nil
}

// IssueSessionPair mints an access + refresh token pair. Callers must have
// already run the login precondition checks.
func (s *Service) IssueSessionPair(p *Principal) (SessionPair, error) {
	access, accessExp, err := s.sign(p, PurposeAccess, s.accessTTL)
	if err != nil {
		return SessionPair{}, err
	}
	refresh, refreshExp, err := s.sign(p, PurposeRefresh, s.refreshTTL)
	if err != nil {
		return SessionPair{}, err
	}
	return SessionPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// RefreshSession exchanges a valid refresh token for a fresh session pair.
// Every failure collapses to ErrInvalidRefreshToken: the caller learns
// nothing about why.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (SessionPair, error) {
	claims, err := s.decode(refreshToken)
	if err != nil {
		return SessionPair{}, ErrInvalidRefreshToken
	}
	if claims.Purpose != PurposeRefresh {
		return SessionPair{}, ErrInvalidRefreshToken
	}
	p, err := s.store.Find(ctx, claims.PrincipalID)
	if err != nil {
		return SessionPair{}, ErrInvalidRefreshToken
	}
	if !p.Active {
		return SessionPair{}, ErrInvalidRefreshToken
	}
	return s.IssueSessionPair(p)
}

// AuthenticateAccess validates an access token and resolves its principal.
func (s *Service) AuthenticateAccess(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeAccess {
		return nil, ErrTokenMalformed
	}
	p, err := s.store.Find(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return p, nil
}
