package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
)

type stubValidator struct {
	valid map[string]string
}

func (s stubValidator) Validate(token string) (*domain.Claims, error) {
	sub, ok := s.valid[token]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Claims{Subject: sub, Email: sub + "@example.com"}, nil
}

type stubAccounts map[string]*domain.User

func (s stubAccounts) CurrentUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

func newAuthMiddleware() echo.MiddlewareFunc {
	return Auth(
		stubValidator{valid: map[string]string{"good": "u1", "orphan": "gone"}},
		stubAccounts{"u1": {ID: "u1", Email: "alice@example.com", Role: domain.RoleAdmin}},
	)
}

func runAuth(t *testing.T, req *http.Request) (echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := newAuthMiddleware()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return c, called, err
}

func TestAuthMiddleware_BearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")

	c, called, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if c.Get("user_id") != "u1" {
		t.Fatalf("user_id not set")
	}
	if c.Get("email") != "alice@example.com" {
		t.Fatalf("email not set")
	}
	if c.Get("role") != "Admin" {
		t.Fatalf("role not set, got %v", c.Get("role"))
	}
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "JWTToken", Value: "good"})

	c, called, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || c.Get("user_id") != "u1" {
		t.Fatalf("cookie token not accepted")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cases := map[string]func(r *http.Request){
		"missing token":            func(r *http.Request) {},
		"wrong scheme":             func(r *http.Request) { r.Header.Set("Authorization", "Token good") },
		"empty bearer":             func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
		"invalid token":            func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-token") },
		"invalid cookie":           func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "JWTToken", Value: "bad"}) },
		"account no longer exists": func(r *http.Request) { r.Header.Set("Authorization", "Bearer orphan") },
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)

			_, called, err := runAuth(t, req)
			if called {
				t.Fatalf("should not reach next")
			}
			if !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}
