package auth

import "context"

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Create(ctx context.Context, p *Principal) error
	Find(ctx context.Context, id int64) (*Principal, error)
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	List(ctx context.Context, filter ListFilter) ([]*Principal, error)

	MarkVerified(ctx context.Context, id int64) error
	MarkRegistrationPaid(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	CreateProfile(ctx context.Context, profile *Profile) error
	FindProfile(ctx context.Context, principalID int64) (*Profile, error)
}

// ListFilter narrows List results. Zero values mean no constraint.
type ListFilter struct {
	Role     Role
	Verified *bool
	Approved *bool
}
