package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// EventRecorder accepts account events for asynchronous processing. Record
// must not block the caller.
type EventRecorder interface {
	Record(event domain.AccountEvent)
}

// ActivityService processes one account event synchronously.
type ActivityService interface {
	Process(ctx context.Context, event domain.AccountEvent) error
}
