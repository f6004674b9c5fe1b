package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
)

// TokenConfig is the signing configuration shared by issuance and validation.
// It is loaded once at startup and never mutated.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// TokenService issues and validates HS256 access tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenService struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
	log      zerolog.Logger
	parser   *jwt.Parser
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithTokenLogger attaches a logger for rejected-token diagnostics.
func WithTokenLogger(log zerolog.Logger) TokenOption {
	return func(s *TokenService) { s.log = log }
}

// NewTokenService returns domain.ErrMissingSigningSecret when cfg.Secret is
// empty; callers must treat that as fatal.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, domain.ErrMissingSigningSecret
	}

	s := &TokenService{
		key:      []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	}
	if s.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.audience))
	}
	s.parser = jwt.NewParser(parserOpts...)

	return s, nil
}

// Issue signs a token for user that expires ttl after now.
func (s *TokenService) Issue(user *domain.User, ttl time.Duration) (domain.Token, error) {
	if user == nil || user.ID == "" || user.Email == "" {
		return domain.Token{}, domain.ErrInvalidIdentity
	}
	if ttl <= 0 {
		return domain.Token{}, fmt.Errorf("issue token: non-positive ttl %s", ttl)
	}

	exp := s.now().Add(ttl)
	claims := &domain.Claims{
		Subject:   user.ID,
		Name:      user.Email,
		Email:     user.Email,
		Issuer:    s.issuer,
		Audience:  s.audience,
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate verifies signature, algorithm, issuer, audience and expiry.
func (s *TokenService) Validate(token string) (*domain.Claims, error) {
	claims := &domain.Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil || !parsed.Valid {
		s.log.Debug().Err(err).Str("reason", rejectReason(err)).Msg("token rejected")
		return nil, domain.ErrUnauthenticated
	}
	if claims.Subject == "" {
		s.log.Debug().Str("reason", "missing_subject").Msg("token rejected")
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

func rejectReason(err error) string {
	switch {
	case err == nil:
		return "invalid"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "audience"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
