package ports

import (
	"context"
	"time"

	"github.com/99minutos/account-service/internal/core/domain"
)

// RegisterInput carries the fields of a registration form.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginInput carries the fields of a login form.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// AuthResult is returned by flows that sign a user in.
type AuthResult struct {
	User  *domain.User
	Token string
	// TTL is the lifetime the token was issued with; transports use it for
	// cookie expiry.
	TTL time.Duration
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, userID string) (*AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}
