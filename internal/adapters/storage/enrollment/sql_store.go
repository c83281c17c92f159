package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mastery/internal/adapters/storage"
	domain "mastery/internal/domain/enrollment"
)

const columns = "id, user_id, email, enrollment_status, program_access, payment_amount, payment_method, payment_confirmed_at, created_at"

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db      storage.SQLDB
	dialect storage.Dialect
	now     func() time.Time
}

// NewSQLStore creates a new enrollment store.
func NewSQLStore(db storage.SQLDB, dialect storage.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Create inserts a new Enrollment.
// PRE: value has been validated
// POST: Row inserted; returns domain.ErrDuplicateEnrollment if the user already has one
func (s *SQLStore) Create(ctx context.Context, value domain.Enrollment) error {
	if err := value.Validate(); err != nil {
		return err
	}
	query := s.dialect.Rebind("INSERT INTO enrollments (" + columns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query,
		value.ID,
		value.UserID,
		value.Email,
		value.EnrollmentStatus,
		value.ProgramAccess,
		value.PaymentAmount,
		value.PaymentMethod,
		s.dialect.NullTime(value.PaymentConfirmedAt),
		s.dialect.Time(value.CreatedAt),
	)
	if storage.IsUniqueViolation(err) {
		return domain.ErrDuplicateEnrollment
	}
	return err
}

// GetByUserID retrieves the Enrollment owned by userID.
// PRE: userID is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLStore) GetByUserID(ctx context.Context, userID string) (domain.Enrollment, error) {
	query := s.dialect.Rebind("SELECT " + columns + " FROM enrollments WHERE user_id = ?")
	entity, err := scanEnrollment(s.db.QueryRowContext(ctx, query, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Enrollment{}, domain.ErrNotFound
	}
	return entity, err
}

// List retrieves enrollments newest first.
// PRE: filter has valid parameters (Limit 0 means no limit)
// POST: Returns matching entities
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Enrollment, error) {
	var queryBuilder strings.Builder
	var args []any

	queryBuilder.WriteString("SELECT " + columns + " FROM enrollments")

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := s.dialect.LikeOperator()
		pattern := "%" + strings.ToLower(search) + "%"
		fmt.Fprintf(&queryBuilder, " WHERE LOWER(email) %s ? OR LOWER(id) %s ?", like, like)
		args = append(args, pattern, pattern)
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(queryBuilder.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Enrollment
	for rows.Next() {
		entity, err := scanEnrollment(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ConfirmPayment marks the user's enrollment paid and unlocked in one transaction.
// PRE: userID is non-empty
// POST: enrollment_status, program_access, payment_method and payment_confirmed_at change together
// INVARIANT: no reader ever sees paid without unlocked
func (s *SQLStore) ConfirmPayment(ctx context.Context, userID, method string) (domain.Enrollment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Enrollment{}, err
	}
	defer tx.Rollback()

	query := s.dialect.Rebind("SELECT " + columns + " FROM enrollments WHERE user_id = ?")
	if s.dialect == storage.Postgres {
		query += " FOR UPDATE"
	}
	entity, err := scanEnrollment(tx.QueryRowContext(ctx, query, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Enrollment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Enrollment{}, err
	}

	if err := entity.ConfirmPayment(method, s.now()); err != nil {
		return domain.Enrollment{}, err
	}

	update := s.dialect.Rebind(`UPDATE enrollments
		SET enrollment_status = ?, program_access = ?, payment_method = ?, payment_confirmed_at = ?
		WHERE user_id = ?`)
	if _, err := tx.ExecContext(ctx, update,
		entity.EnrollmentStatus,
		entity.ProgramAccess,
		entity.PaymentMethod,
		s.dialect.NullTime(entity.PaymentConfirmedAt),
		userID,
	); err != nil {
		return domain.Enrollment{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Enrollment{}, err
	}
	return entity, nil
}

// scanEnrollment extracts an Enrollment from a row scanner function.
func scanEnrollment(scan func(dest ...any) error) (domain.Enrollment, error) {
	var entity domain.Enrollment
	var createdAt string
	var confirmedAt sql.NullString
	err := scan(
		&entity.ID,
		&entity.UserID,
		&entity.Email,
		&entity.EnrollmentStatus,
		&entity.ProgramAccess,
		&entity.PaymentAmount,
		&entity.PaymentMethod,
		&confirmedAt,
		&createdAt,
	)
	if err != nil {
		return domain.Enrollment{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	if confirmedAt.Valid && confirmedAt.String != "" {
		t, err := storage.ParseTime(confirmedAt.String)
		if err == nil {
			entity.PaymentConfirmedAt = &t
		}
	}
	return entity, nil
}
