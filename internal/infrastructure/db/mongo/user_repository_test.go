package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/99minutos/account-service/internal/core/domain"
)

func TestMongoUser_RoundTrip(t *testing.T) {
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	in := &domain.User{
		ID:           "u1",
		Email:        "a@b.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleAdmin,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Hour),
	}

	doc := toMongoUser(in)
	assert.Equal(t, "Admin", doc.Role)
	assert.Equal(t, created.Unix(), doc.CreatedAt)

	assert.Equal(t, in, doc.toDomain())
}

func TestUnixToTime(t *testing.T) {
	assert.True(t, unixToTime(0).IsZero())
	assert.Equal(t, time.UTC, unixToTime(1700000000).Location())
}
