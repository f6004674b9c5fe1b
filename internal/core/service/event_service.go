package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type activityService struct {
	publishers []ports.EventPublisher
	log        zerolog.Logger
}

// NewActivityService returns an ActivityService that fans each event out to
// every publisher. nil publishers are skipped.
func NewActivityService(log zerolog.Logger, publishers ...ports.EventPublisher) ports.ActivityService {
	filtered := make([]ports.EventPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &activityService{publishers: filtered, log: log}
}

// Process delivers the event to all publishers. A failing publisher does not
// stop the others; the joined error is returned.
func (s *activityService) Process(ctx context.Context, event domain.AccountEvent) error {
	if event.Type == "" {
		return fmt.Errorf("process event: missing type")
	}

	var errs []error
	for _, p := range s.publishers {
		if err := p.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).
				Str("type", string(event.Type)).
				Str("user_id", event.UserID).
				Msg("failed to publish account event")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("process event: %w", errors.Join(errs...))
	}

	s.log.Debug().
		Str("type", string(event.Type)).
		Str("user_id", event.UserID).
		Msg("event processed")
	return nil
}
