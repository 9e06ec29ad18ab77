package payments

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryCreateRejectsUnknownKind(t *testing.T) {
	store := NewInMemory(nil)
	err := store.Create(context.Background(), &Payment{
		PrincipalID: 1,
		Kind:        Kind("donation"),
		Purpose:     "donation",
		Amount:      1000,
		Reference:   "DON-1700000000-AAAAAA",
	})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
	if payments, _ := store.ListByPrincipal(context.Background(), 1); len(payments) != 0 {
		t.Fatalf("record persisted despite invalid kind: %+v", payments)
	}
}

func TestInMemoryCreateRejectsBlankKind(t *testing.T) {
	store := NewInMemory(nil)
	err := store.Create(context.Background(), &Payment{
		PrincipalID: 1,
		Amount:      1000,
		Reference:   "REG-1700000000-AAAAAA",
	})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
}

func TestInMemoryFindUnknownKindIsNotFound(t *testing.T) {
	store := NewInMemory(nil)
	if _, err := store.FindByReference(context.Background(), Kind("donation"), "ref"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestPGStoreCreateRejectsUnknownKind(t *testing.T) {
	store := NewPGStore(nil)
	err := store.Create(context.Background(), &Payment{
		PrincipalID: 1,
		Kind:        Kind("donation"),
		Amount:      1000,
	})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
}
