package account

import (
	"context"

	domain "mastery/internal/domain/account"
)

// Store persists local identity accounts.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Create(ctx context.Context, value domain.Account) error
	Save(ctx context.Context, value domain.Account) error
}
