package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"mastery/internal/adapters/storage"
	domain "mastery/internal/domain/account"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, storage.SQLite)
}

func sampleAccount(id, email string) domain.Account {
	return domain.Account{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$10$hash",
		FullName:     "Dana Reyes",
		Phone:        "555-0100",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestSQLStore_CreateAndGet verifies both lookups and email normalisation.
func TestSQLStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(context.Background(), sampleAccount("a-1", "Dana@Example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := s.GetByID(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	byEmail, err := s.GetByEmail(context.Background(), " dana@EXAMPLE.com ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byID.ID != byEmail.ID || byEmail.Email != "dana@example.com" {
		t.Errorf("byID = %+v, byEmail = %+v", byID, byEmail)
	}
	if byID.FullName != "Dana Reyes" || byID.Phone != "555-0100" {
		t.Errorf("profile not stored: %+v", byID)
	}
	if !byID.LockedUntil.IsZero() {
		t.Errorf("LockedUntil = %v, want zero", byID.LockedUntil)
	}
}

// TestSQLStore_Create_Duplicate verifies ErrEmailTaken.
func TestSQLStore_Create_Duplicate(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(context.Background(), sampleAccount("a-1", "dana@example.com")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(context.Background(), sampleAccount("a-2", "DANA@example.com")); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

// TestSQLStore_Save verifies lockout state persists.
func TestSQLStore_Save(t *testing.T) {
	s := newTestStore(t)
	acct := sampleAccount("a-1", "dana@example.com")
	if err := s.Create(context.Background(), acct); err != nil {
		t.Fatalf("Create: %v", err)
	}

	until := time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC)
	acct.FailedLogins = 5
	acct.LockedUntil = until
	if err := s.Save(context.Background(), acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.GetByID(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FailedLogins != 5 || !got.LockedUntil.Equal(until) {
		t.Errorf("FailedLogins = %d, LockedUntil = %v", got.FailedLogins, got.LockedUntil)
	}

	if err := s.Save(context.Background(), sampleAccount("missing", "x@y.zz")); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Save(missing) err = %v, want ErrNotFound", err)
	}
}

// TestSQLStore_NotFound verifies the sentinel error.
func TestSQLStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetByID(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID err = %v", err)
	}
	if _, err := s.GetByEmail(context.Background(), "nope@x.y"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByEmail err = %v", err)
	}
}
