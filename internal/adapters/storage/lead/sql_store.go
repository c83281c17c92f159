package lead

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mastery/internal/adapters/storage"
	domain "mastery/internal/domain/lead"
)

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db      storage.SQLDB
	dialect storage.Dialect
}

// NewSQLStore creates a new lead store.
func NewSQLStore(db storage.SQLDB, dialect storage.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// GetByEmail retrieves a lead by email. The lookup key is lowercased.
// PRE: email is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.Lead, error) {
	query := s.dialect.Rebind(`SELECT id, first_name, last_name, email, interest_reason, discovery_source, user_agent, created_at, updated_at
		FROM roadmap_leads WHERE email = ?`)
	row := s.db.QueryRowContext(ctx, query, strings.ToLower(email))

	var entity domain.Lead
	var createdAt, updatedAt string
	err := row.Scan(
		&entity.ID,
		&entity.FirstName,
		&entity.LastName,
		&entity.Email,
		&entity.InterestReason,
		&entity.DiscoverySource,
		&entity.UserAgent,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lead{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	entity.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return entity, nil
}

// Insert adds a new lead.
// PRE: value.Email is lowercased
// POST: Row inserted; a concurrent insert for the same email surfaces as a unique violation
func (s *SQLStore) Insert(ctx context.Context, value domain.Lead) error {
	query := s.dialect.Rebind(`INSERT INTO roadmap_leads
		(id, first_name, last_name, email, interest_reason, discovery_source, user_agent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		value.ID,
		value.FirstName,
		value.LastName,
		strings.ToLower(value.Email),
		value.InterestReason,
		value.DiscoverySource,
		value.UserAgent,
		s.dialect.Time(value.CreatedAt),
		s.dialect.Time(value.UpdatedAt),
	)
	return err
}

// Update overwrites the mutable fields of the lead with value.ID.
// PRE: value.ID exists
// POST: Name, interest reason, discovery source, user agent and updated_at replaced
func (s *SQLStore) Update(ctx context.Context, value domain.Lead) error {
	query := s.dialect.Rebind(`UPDATE roadmap_leads
		SET first_name = ?, last_name = ?, interest_reason = ?, discovery_source = ?, user_agent = ?, updated_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		value.FirstName,
		value.LastName,
		value.InterestReason,
		value.DiscoverySource,
		value.UserAgent,
		s.dialect.Time(value.UpdatedAt),
		value.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
