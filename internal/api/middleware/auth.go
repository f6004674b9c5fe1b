package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// TokenCookie is the cookie the browser flow keeps the bearer token in.
const TokenCookie = "JWTToken"

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// AccountLookup resolves the account behind a validated token.
type AccountLookup interface {
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

// Auth accepts a bearer token from the Authorization header or the JWTToken
// cookie, validates it and injects user_id, email and role into the context.
// Roles are not token claims, so the account is loaded on every request.
func Auth(tokens ports.TokenValidator, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return domain.ErrUnauthenticated
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				metrics.TokenRejectionsTotal.Inc()
				return domain.ErrUnauthenticated
			}

			user, err := accounts.CurrentUser(c.Request().Context(), claims.Subject)
			if err != nil {
				return err
			}

			c.Set(CtxUserID, user.ID)
			c.Set(CtxEmail, user.Email)
			c.Set(CtxRole, string(user.Role))

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}

	cookie, err := c.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
