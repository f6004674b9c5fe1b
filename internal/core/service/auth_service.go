package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	DefaultTokenTTL      = 4 * 24 * time.Hour
	DefaultRememberMeTTL = 30 * 24 * time.Hour
)

// AuthOptions tunes the AuthService. Zero values fall back to defaults.
type AuthOptions struct {
	TokenTTL      time.Duration
	RememberMeTTL time.Duration
	BcryptCost    int
	RolePolicy    domain.RolePolicy
	Throttle      ports.LoginThrottle
	Events        ports.EventRecorder
	Logger        zerolog.Logger
}

// AuthService implements registration, login and token refresh.
type AuthService struct {
	repo        ports.UserRepository
	tokens      ports.TokenIssuer
	tokenTTL    time.Duration
	rememberTTL time.Duration
	cost        int
	policy      domain.RolePolicy
	throttle    ports.LoginThrottle
	events      ports.EventRecorder
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenIssuer, opts AuthOptions) *AuthService {
	s := &AuthService{
		repo:        repo,
		tokens:      tokens,
		tokenTTL:    opts.TokenTTL,
		rememberTTL: opts.RememberMeTTL,
		cost:        opts.BcryptCost,
		policy:      opts.RolePolicy,
		throttle:    opts.Throttle,
		events:      opts.Events,
		log:         opts.Logger,
		now:         time.Now,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = DefaultTokenTTL
	}
	if s.rememberTTL <= 0 {
		s.rememberTTL = DefaultRememberMeTTL
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.policy == nil {
		s.policy = domain.AssignInitialRole
	}
	if s.throttle == nil {
		s.throttle = noopThrottle{}
	}
	if s.events == nil {
		s.events = discardEvents{}
	}
	return s
}

// Register creates the account, decides its role and signs the user in.
//
// The account is stored as a plain User first. The registration counter is
// bumped only after the insert succeeds, and the role comes from the ordinal
// it returns.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	ordinal, err := s.repo.NextRegistrationOrdinal(ctx)
	if err != nil {
		s.rollbackRegistration(ctx, created.ID, false)
		return nil, fmt.Errorf("registration ordinal: %w", err)
	}
	if role := s.policy(ordinal); role != created.Role {
		if err := s.repo.UpdateRole(ctx, created.ID, role); err != nil {
			s.rollbackRegistration(ctx, created.ID, true)
			return nil, fmt.Errorf("assign role: %w", err)
		}
		created.Role = role
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Int64("ordinal", ordinal).Msg("account registered")
	s.record(domain.EventRegistered, created, created.ID)
	s.record(domain.EventRoleAssigned, created, created.ID)

	return s.signIn(created, s.tokenTTL)
}

// rollbackRegistration deletes a half-registered account so the email can be
// reused. When the ordinal was taken it is released too, so a lost Admin slot
// goes to the next registrant.
func (s *AuthService) rollbackRegistration(ctx context.Context, userID string, releaseOrdinal bool) {
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Delete(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to roll back registration")
	}
	if !releaseOrdinal {
		return
	}
	if err := s.repo.ReleaseRegistrationOrdinal(ctx); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("failed to release registration ordinal")
	}
}

// Login verifies credentials. Unknown email and wrong password are reported
// identically.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	blocked, err := s.throttle.Blocked(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, continuing")
	} else if blocked {
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.loginFailed(ctx, email, nil)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.loginFailed(ctx, email, user)
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("login throttle reset failed")
	}

	ttl := s.tokenTTL
	if in.RememberMe {
		ttl = s.rememberTTL
	}

	s.record(domain.EventLoggedIn, user, user.ID)
	return s.signIn(user, ttl)
}

// Refresh issues a fresh default-lifetime token for an authenticated user.
func (s *AuthService) Refresh(ctx context.Context, userID string) (*ports.AuthResult, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.signIn(user, s.tokenTTL)
}

// CurrentUser loads the account behind a validated token. An account that no
// longer exists makes the token useless.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) signIn(user *domain.User, ttl time.Duration) (*ports.AuthResult, error) {
	token, err := s.tokens.Issue(user, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{User: user, Token: token.Value, TTL: ttl}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string, user *domain.User) {
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("login throttle update failed")
	}
	ev := domain.AccountEvent{Type: domain.EventLoginFailed, Email: email, OccurredAt: s.now().UTC()}
	if user != nil {
		ev.UserID = user.ID
	}
	s.events.Record(ev)
}

func (s *AuthService) record(t domain.AccountEventType, user *domain.User, actorID string) {
	s.events.Record(domain.AccountEvent{
		Type:       t,
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	})
}

type noopThrottle struct{}

func (noopThrottle) Blocked(context.Context, string) (bool, error) { return false, nil }
func (noopThrottle) RecordFailure(context.Context, string) error   { return nil }
func (noopThrottle) Reset(context.Context, string) error           { return nil }

type discardEvents struct{}

func (discardEvents) Record(domain.AccountEvent) {}
