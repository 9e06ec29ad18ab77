package auth

import (
	"context"
	"database/sql"
	"strings"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const principalColumns = `id, email, first_name, last_name, role, password_hash,
	is_active, is_staff, is_verified, is_approved, paid_reg, created_at, updated_at`

func scanPrincipal(row interface{ Scan(dest ...any) error }) (*Principal, error) {
	var p Principal
	err := row.Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.PasswordHash,
		&p.Active, &p.Staff, &p.Verified, &p.Approved, &p.PaidReg,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PGStore) Create(ctx context.Context, p *Principal) error {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return ErrInvalidInput
	}
	p.Email = email
	err := s.db.QueryRowContext(ctx, `
		insert into principals(email, first_name, last_name, role, password_hash,
			is_active, is_staff, is_verified, is_approved, paid_reg)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		on conflict (email) do nothing
		returning id, created_at, updated_at`,
		p.Email, p.FirstName, p.LastName, p.Role, p.PasswordHash,
		p.Active, p.Staff, p.Verified, p.Approved, p.PaidReg,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, id int64) (*Principal, error) {
	return scanPrincipal(s.db.QueryRowContext(ctx,
		`select `+principalColumns+` from principals where id=$1`, id))
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanPrincipal(s.db.QueryRowContext(ctx,
		`select `+principalColumns+` from principals where email=$1`, email))
}

func (s *PGStore) List(ctx context.Context, filter ListFilter) ([]*Principal, error) {
	query := `select ` + principalColumns + ` from principals where ($1 = '' or role = $1)`
	args := []any{string(filter.Role)}
	if filter.Verified != nil {
		query += ` and is_verified = $2`
		args = append(args, *filter.Verified)
	}
	query += ` order by created_at asc`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		if filter.Approved != nil && p.Approved != *filter.Approved {
			continue
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *PGStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MarkVerified(ctx context.Context, id int64) error {
	return s.exec(ctx,
		`update principals set is_verified=true, updated_at=now() where id=$1`, id)
}

func (s *PGStore) MarkRegistrationPaid(ctx context.Context, id int64) error {
	return s.exec(ctx,
		`update principals set paid_reg=true, updated_at=now() where id=$1`, id)
}

func (s *PGStore) SetActive(ctx context.Context, id int64, active bool) error {
	return s.exec(ctx,
		`update principals set is_active=$2, updated_at=now() where id=$1`, id, active)
}

func (s *PGStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return s.exec(ctx,
		`update principals set password_hash=$2, updated_at=now() where id=$1`, id, passwordHash)
}

func (s *PGStore) CreateProfile(ctx context.Context, profile *Profile) error {
	_, err := s.db.ExecContext(ctx, `
		insert into profiles(principal_id, student_no, faculty, department, level, hall, room_no)
		values($1,$2,$3,$4,$5,$6,$7)
		on conflict (principal_id) do update set
			student_no=excluded.student_no, faculty=excluded.faculty,
			department=excluded.department, level=excluded.level,
			hall=excluded.hall, room_no=excluded.room_no`,
		profile.PrincipalID, profile.StudentNo, profile.Faculty,
		profile.Department, profile.Level, profile.Hall, profile.RoomNo,
	)
	return err
}

func (s *PGStore) FindProfile(ctx context.Context, principalID int64) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		select principal_id, student_no, faculty, department, level, hall, room_no
		from profiles where principal_id=$1`, principalID)
	var p Profile
	err := row.Scan(&p.PrincipalID, &p.StudentNo, &p.Faculty, &p.Department, &p.Level, &p.Hall, &p.RoomNo)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
