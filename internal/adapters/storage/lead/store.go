package lead

import (
	"context"

	domain "mastery/internal/domain/lead"
)

// Store persists roadmap leads, keyed by lowercased email.
type Store interface {
	GetByEmail(ctx context.Context, email string) (domain.Lead, error)
	Insert(ctx context.Context, value domain.Lead) error
	Update(ctx context.Context, value domain.Lead) error
}
