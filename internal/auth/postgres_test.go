package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("insert into principals").
		WithArgs("ada@example.edu", "Ada", "Obi", "student", sqlmock.AnyArg(),
			true, false, false, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	store := NewPGStore(db)
	p := &Principal{
		Email:        "Ada@Example.edu",
		FirstName:    "Ada",
		LastName:     "Obi",
		Role:         RoleStudent,
		PasswordHash: "hash",
		Active:       true,
	}
	if err := store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID != 1 {
		t.Fatalf("id = %d", p.ID)
	}
	if p.Email != "ada@example.edu" {
		t.Fatalf("email not normalized: %q", p.Email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// "on conflict do nothing" yields no returned row for a duplicate.
	mock.ExpectQuery("insert into principals").
		WithArgs("dup@example.edu", "", "", "student", "hash",
			false, false, false, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))

	store := NewPGStore(db)
	p := &Principal{Email: "dup@example.edu", Role: RoleStudent, PasswordHash: "hash"}
	if err := store.Create(context.Background(), p); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreMarkVerifiedMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update principals set is_verified=true").
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	if err := store.MarkVerified(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
