package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// EventRepository appends account events to the account_events table.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

var _ ports.EventPublisher = (*EventRepository)(nil)

func (r *EventRepository) Publish(ctx context.Context, event domain.AccountEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const query = `
INSERT INTO account_events (type, user_id, email, role, actor_id, occurred_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
`
	_, err := r.pool.Exec(ctx, query,
		string(event.Type),
		event.UserID,
		event.Email,
		string(event.Role),
		event.ActorID,
		event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert account event: %w", err)
	}
	return nil
}
