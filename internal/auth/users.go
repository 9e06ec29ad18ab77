package auth

import "context"

// ListPrincipals returns accounts matching the filter.
func (s *Service) ListPrincipals(ctx context.Context, filter ListFilter) ([]*Principal, error) {
	return s.store.List(ctx, filter)
}

// SetActive toggles whether the principal may sign in.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.store.SetActive(ctx, id, active)
}

// FindProfile returns the student profile for the principal.
func (s *Service) FindProfile(ctx context.Context, principalID int64) (*Profile, error) {
	return s.store.FindProfile(ctx, principalID)
}
