package lead

import (
	"context"
	"errors"
	"testing"
	"time"

	"mastery/internal/adapters/storage"
	domain "mastery/internal/domain/lead"
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

func sampleLead(id, email string, now time.Time) domain.Lead {
	return domain.Lead{
		ID:              id,
		FirstName:       "Dana",
		LastName:        "Reyes",
		Email:           email,
		InterestReason:  domain.ReasonCareerChange,
		DiscoverySource: domain.SourceYouTube,
		UserAgent:       "test-agent",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// TestSQLStore_InsertAndGetByEmail verifies lookups ignore case.
func TestSQLStore_InsertAndGetByEmail(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	if err := s.Insert(context.Background(), sampleLead("l-1", "Dana@Example.com", now)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.GetByEmail(context.Background(), "DANA@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != "l-1" || got.Email != "dana@example.com" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, now)
	}
}

// TestSQLStore_GetByEmail_NotFound verifies the sentinel error.
func TestSQLStore_GetByEmail_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestSQLStore_Insert_DuplicateEmail verifies email uniqueness.
func TestSQLStore_Insert_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	if err := s.Insert(context.Background(), sampleLead("l-1", "dana@example.com", now)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := s.Insert(context.Background(), sampleLead("l-2", "DANA@example.com", now))
	if !storage.IsUniqueViolation(err) {
		t.Errorf("err = %v, want unique violation", err)
	}
}

// TestSQLStore_Update verifies mutable fields change and identity fields do not.
func TestSQLStore_Update(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	if err := s.Insert(context.Background(), sampleLead("l-1", "dana@example.com", created)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	updated := created.Add(24 * time.Hour)
	l := sampleLead("l-1", "dana@example.com", created)
	l.FirstName = "Danielle"
	l.InterestReason = domain.ReasonMoreIncome
	l.DiscoverySource = domain.SourceFriend
	l.UserAgent = "other-agent"
	l.UpdatedAt = updated
	if err := s.Update(context.Background(), l); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.GetByEmail(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.FirstName != "Danielle" || got.InterestReason != domain.ReasonMoreIncome ||
		got.DiscoverySource != domain.SourceFriend || got.UserAgent != "other-agent" {
		t.Errorf("fields not updated: %+v", got)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(updated) {
		t.Errorf("timestamps = %v/%v", got.CreatedAt, got.UpdatedAt)
	}

	if err := s.Update(context.Background(), sampleLead("missing", "x@y.zz", updated)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update(missing) err = %v, want ErrNotFound", err)
	}
}
