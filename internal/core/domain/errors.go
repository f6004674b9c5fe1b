package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInvalidInput       = errors.New("email and password are required")

	// ErrUnauthenticated is returned for every rejected token, whatever the
	// underlying cause (signature, expiry, issuer, audience, format).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidIdentity is returned when a token is requested for a user
	// without an id or email.
	ErrInvalidIdentity = errors.New("user identity requires id and email")
	// ErrMissingSigningSecret guards against issuing tokens without a key.
	ErrMissingSigningSecret = errors.New("token signing secret is not configured")
)
