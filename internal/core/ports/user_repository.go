package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	Delete(ctx context.Context, id string) error

	// NextRegistrationOrdinal atomically bumps the registration counter and
	// returns how many accounts were registered before the caller.
	NextRegistrationOrdinal(ctx context.Context) (int64, error)
	// ReleaseRegistrationOrdinal hands back an ordinal taken by a registration
	// that was rolled back. The counter never drops below zero.
	ReleaseRegistrationOrdinal(ctx context.Context) error
}
