package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"mastery/internal/adapters/storage"
	domain "mastery/internal/domain/account"
)

const columns = "id, email, password_hash, full_name, phone, created_at, failed_logins, locked_until"

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("account email already registered")

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db      storage.SQLDB
	dialect storage.Dialect
}

// NewSQLStore creates a new account store.
func NewSQLStore(db storage.SQLDB, dialect storage.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.getOne(ctx, "SELECT "+columns+" FROM accounts WHERE id = ?", id)
}

// GetByEmail retrieves an Account by email, ignoring case.
// PRE: email is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.getOne(ctx, "SELECT "+columns+" FROM accounts WHERE email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLStore) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	entity, err := scanAccount(s.db.QueryRowContext(ctx, s.dialect.Rebind(query), arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	return entity, err
}

// Create inserts a new Account.
// PRE: entity has been validated and has a password hash
// POST: Row inserted; returns ErrEmailTaken on a duplicate email
func (s *SQLStore) Create(ctx context.Context, entity domain.Account) error {
	query := s.dialect.Rebind("INSERT INTO accounts (" + columns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query,
		entity.ID,
		strings.ToLower(entity.Email),
		entity.PasswordHash,
		entity.FullName,
		entity.Phone,
		s.dialect.Time(entity.CreatedAt),
		entity.FailedLogins,
		s.dialect.NullTime(&entity.LockedUntil),
	)
	if storage.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// Save updates the mutable fields of an existing Account.
// PRE: entity.ID exists
// POST: Password hash, profile and lockout state persisted
func (s *SQLStore) Save(ctx context.Context, entity domain.Account) error {
	query := s.dialect.Rebind(`UPDATE accounts
		SET password_hash = ?, full_name = ?, phone = ?, failed_logins = ?, locked_until = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		entity.PasswordHash,
		entity.FullName,
		entity.Phone,
		entity.FailedLogins,
		s.dialect.NullTime(&entity.LockedUntil),
		entity.ID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.FullName,
		&entity.Phone,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = storage.ParseTime(lockedUntil.String)
	}
	return entity, nil
}
