package enrollment

import (
	"context"

	domain "mastery/internal/domain/enrollment"
)

// Store persists Enrollment state.
type Store interface {
	Create(ctx context.Context, value domain.Enrollment) error
	GetByUserID(ctx context.Context, userID string) (domain.Enrollment, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Enrollment, error)
	ConfirmPayment(ctx context.Context, userID, method string) (domain.Enrollment, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	// Search matches email or enrollment id, case-insensitively. Empty matches all.
	Search string
	Limit  int
	Offset int
}
