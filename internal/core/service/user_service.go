package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// UserService implements the admin user-management screens.
type UserService struct {
	repo   ports.UserRepository
	events ports.EventRecorder
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(repo ports.UserRepository, events ports.EventRecorder, logger zerolog.Logger) *UserService {
	if events == nil {
		events = discardEvents{}
	}
	return &UserService{repo: repo, events: events, logger: logger, now: time.Now}
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// Update copies the edit form onto the stored account. The email is also the
// login name, so changing it changes how the user signs in.
func (s *UserService) Update(ctx context.Context, actorID string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	user.Email = domain.NormalizeEmail(in.Email)
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", updated.ID).Str("actor_id", actorID).Msg("account updated")
	s.record(domain.EventUpdated, updated, actorID)
	return updated, nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID != "" && actorID == id {
		return domain.ErrForbidden
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", id).Str("actor_id", actorID).Msg("account deleted")
	s.record(domain.EventDeleted, user, actorID)
	return nil
}

func (s *UserService) record(t domain.AccountEventType, user *domain.User, actorID string) {
	s.events.Record(domain.AccountEvent{
		Type:       t,
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	})
}
