package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// UpdateUserInput mirrors the admin edit form.
type UpdateUserInput struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// UserService exposes the admin user-management use cases.
type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, actorID string, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, actorID, id string) error
}
