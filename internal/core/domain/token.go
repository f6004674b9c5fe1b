package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token. Audience is a single string on
// the wire, so the struct implements jwt.Claims itself instead of embedding
// jwt.RegisteredClaims.
type Claims struct {
	Subject   string           `json:"sub"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Issuer    string           `json:"iss"`
	Audience  string           `json:"aud"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

var _ jwt.Claims = (*Claims)(nil)

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *Claims) GetSubject() (string, error)                  { return c.Subject, nil }

func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// Token is a signed bearer credential together with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}
