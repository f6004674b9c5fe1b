package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// EventPublisher delivers an account event to one destination: the audit
// store or a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AccountEvent) error
}
