package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety. Used in
// tests and when no database DSN is configured.
type InMemory struct {
	mu       sync.RWMutex
	nextID   int64
	byID     map[int64]*Principal
	byEmail  map[string]int64
	profiles map[int64]*Profile
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty principal store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[int64]*Principal),
		byEmail:  make(map[string]int64),
		profiles: make(map[int64]*Profile),
	}
}

func (s *InMemory) Create(ctx context.Context, p *Principal) error {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	s.nextID++
	p.ID = s.nextID
	p.Email = email
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.byID[p.ID] = &cp
	s.byEmail[email] = p.ID
	return nil
}

func (s *InMemory) Find(ctx context.Context, id int64) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context, filter ListFilter) ([]*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Principal
	for id := int64(1); id <= s.nextID; id++ {
		p, ok := s.byID[id]
		if !ok {
			continue
		}
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.Verified != nil && p.Verified != *filter.Verified {
			continue
		}
		if filter.Approved != nil && p.Approved != *filter.Approved {
			continue
		}
		cp := *p
		res = append(res, &cp)
	}
	return res, nil
}

func (s *InMemory) update(id int64, fn func(p *Principal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) MarkVerified(ctx context.Context, id int64) error {
	return s.update(id, func(p *Principal) { p.Verified = true })
}

func (s *InMemory) MarkRegistrationPaid(ctx context.Context, id int64) error {
	return s.update(id, func(p *Principal) { p.PaidReg = true })
}

func (s *InMemory) SetActive(ctx context.Context, id int64, active bool) error {
	return s.update(id, func(p *Principal) { p.Active = active })
}

func (s *InMemory) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return s.update(id, func(p *Principal) { p.PasswordHash = passwordHash })
}

func (s *InMemory) CreateProfile(ctx context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[profile.PrincipalID]; !ok {
		return ErrNotFound
	}
	cp := *profile
	s.profiles[profile.PrincipalID] = &cp
	return nil
}

func (s *InMemory) FindProfile(ctx context.Context, principalID int64) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[principalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *profile
	return &cp, nil
}
