package ports

import (
	"time"

	"github.com/99minutos/account-service/internal/core/domain"
)

// TokenIssuer mints signed bearer tokens for a user.
type TokenIssuer interface {
	Issue(user *domain.User, ttl time.Duration) (domain.Token, error)
}

// TokenValidator verifies a bearer token. Every failure is reported as
// domain.ErrUnauthenticated.
type TokenValidator interface {
	Validate(token string) (*domain.Claims, error)
}
