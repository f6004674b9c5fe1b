package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	ordinal int64
	findErr error
	roleErr error
	ordErr  error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roleErr != nil {
		return r.roleErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) NextRegistrationOrdinal(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ordErr != nil {
		return 0, r.ordErr
	}
	n := r.ordinal
	r.ordinal++
	return n, nil
}

func (r *stubUserRepo) ReleaseRegistrationOrdinal(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ordinal > 0 {
		r.ordinal--
	}
	return nil
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *stubUserRepo) setRoleErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roleErr = err
}

type stubThrottle struct {
	failures map[string]int
	max      int
}

func (s *stubThrottle) Blocked(_ context.Context, key string) (bool, error) {
	return s.failures[key] >= s.max, nil
}

func (s *stubThrottle) RecordFailure(_ context.Context, key string) error {
	s.failures[key]++
	return nil
}

func (s *stubThrottle) Reset(_ context.Context, key string) error {
	delete(s.failures, key)
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.AccountEvent
}

func (r *recordedEvents) Record(e domain.AccountEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedEvents) types() []domain.AccountEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AccountEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestAuthService(t *testing.T, repo ports.UserRepository, opts AuthOptions) (*AuthService, *TokenService) {
	t.Helper()
	tokens := newTestTokenService(t)
	opts.BcryptCost = bcrypt.MinCost
	opts.Logger = zerolog.Nop()
	return NewAuthService(repo, tokens, opts), tokens
}

func register(t *testing.T, svc *AuthService, email string) *ports.AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), ports.RegisterInput{
		Email: email, Password: "pass123", FirstName: "Ada", LastName: "Lovelace",
	})
	if err != nil {
		t.Fatalf("Register(%s) returned error: %v", email, err)
	}
	return res
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(t, repo, AuthOptions{})

	res := register(t, svc, "  Alice@Example.com ")

	if res.User.Email != "alice@example.com" {
		t.Fatalf("expected normalised email, got %q", res.User.Email)
	}
	if res.User.ID == "" {
		t.Fatalf("expected generated id")
	}
	if res.User.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if res.TTL != DefaultTokenTTL {
		t.Fatalf("expected registration ttl %s, got %s", DefaultTokenTTL, res.TTL)
	}

	claims, err := tokens.Validate(res.Token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Subject != res.User.ID || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_Register_FirstUserIsAdmin(t *testing.T) {
	repo := newStubUserRepo()
	events := &recordedEvents{}
	svc, _ := newTestAuthService(t, repo, AuthOptions{Events: events})

	first := register(t, svc, "first@example.com")
	second := register(t, svc, "second@example.com")

	if first.User.Role != domain.RoleAdmin {
		t.Fatalf("expected first user Admin, got %s", first.User.Role)
	}
	if second.User.Role != domain.RoleUser {
		t.Fatalf("expected second user User, got %s", second.User.Role)
	}

	stored, _ := repo.FindByID(context.Background(), first.User.ID)
	if stored.Role != domain.RoleAdmin {
		t.Fatalf("admin role not persisted: %s", stored.Role)
	}

	got := events.types()
	want := []domain.AccountEventType{domain.EventRegistered, domain.EventRoleAssigned, domain.EventRegistered, domain.EventRoleAssigned}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestAuthService_Register_DuplicateDoesNotConsumeAdminSlot(t *testing.T) {
	repo := newStubUserRepo()
	repo.users["seed"] = &domain.User{ID: "seed", Email: "taken@example.com", Role: domain.RoleUser}
	svc, _ := newTestAuthService(t, repo, AuthOptions{})

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "taken@example.com", Password: "pass123"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if repo.ordinal != 0 {
		t.Fatalf("failed registration must not bump the counter, got %d", repo.ordinal)
	}
}

func TestAuthService_Register_ConcurrentSingleAdmin(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo, AuthOptions{})

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.Register(context.Background(), ports.RegisterInput{
				Email:    string(rune('a'+i)) + "@example.com",
				Password: "pass123",
			})
		}(i)
	}
	wg.Wait()

	users, _ := repo.List(context.Background())
	admins := 0
	for _, u := range users {
		if u.Role == domain.RoleAdmin {
			admins++
		}
	}
	if len(users) != n || admins != 1 {
		t.Fatalf("expected %d users with exactly one admin, got %d users and %d admins", n, len(users), admins)
	}
}

func TestAuthService_Register_CustomPolicy(t *testing.T) {
	repo := newStubUserRepo()
	calls := []int64{}
	policy := func(existing int64) domain.Role {
		calls = append(calls, existing)
		return domain.RoleUser
	}
	svc, _ := newTestAuthService(t, repo, AuthOptions{RolePolicy: policy})

	res := register(t, svc, "first@example.com")
	if res.User.Role != domain.RoleUser {
		t.Fatalf("expected injected policy to decide role, got %s", res.User.Role)
	}
	if len(calls) != 1 || calls[0] != 0 {
		t.Fatalf("expected policy called with 0, got %v", calls)
	}
}

func TestAuthService_Register_RoleAssignmentFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.setRoleErr(errors.New("write conflict"))
	svc, _ := newTestAuthService(t, repo, AuthOptions{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Email: "a@example.com", Password: "pass123"}); err == nil {
		t.Fatalf("expected error when role assignment fails")
	}
	if n := repo.count(); n != 0 {
		t.Fatalf("failed registration left %d accounts behind", n)
	}
	if repo.ordinal != 0 {
		t.Fatalf("expected ordinal released, got %d", repo.ordinal)
	}

	repo.setRoleErr(nil)
	retry, err := svc.Register(ctx, ports.RegisterInput{Email: "a@example.com", Password: "pass123"})
	if err != nil {
		t.Fatalf("retry with the same email failed: %v", err)
	}
	if retry.User.Role != domain.RoleAdmin {
		t.Fatalf("expected retried first registrant to be admin, got %s", retry.User.Role)
	}
	second := register(t, svc, "b@example.com")
	if second.User.Role != domain.RoleUser {
		t.Fatalf("expected second registrant to be user, got %s", second.User.Role)
	}

	admins := 0
	users, _ := repo.List(ctx)
	for _, u := range users {
		if u.Role == domain.RoleAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Fatalf("expected exactly one admin, got %d", admins)
	}
}

func TestAuthService_Register_OrdinalFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.ordErr = errors.New("counter unavailable")
	svc, _ := newTestAuthService(t, repo, AuthOptions{})

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "a@example.com", Password: "pass123"})
	if err == nil || !errors.Is(err, repo.ordErr) {
		t.Fatalf("expected wrapped ordinal error, got %v", err)
	}
	if n := repo.count(); n != 0 {
		t.Fatalf("failed registration left %d accounts behind", n)
	}

	repo.ordErr = nil
	res := register(t, svc, "a@example.com")
	if res.User.Role != domain.RoleAdmin {
		t.Fatalf("expected admin after retry, got %s", res.User.Role)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, newStubUserRepo(), AuthOptions{})

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Email: " ", Password: "pass"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Email: "bob@example.com"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestAuthService_Login_TTLs(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(t, repo, AuthOptions{})
	register(t, svc, "carol@example.com")

	short, err := svc.Login(context.Background(), ports.LoginInput{Email: "CAROL@example.com", Password: "pass123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if short.TTL != 4*24*time.Hour {
		t.Fatalf("expected 4 day ttl, got %s", short.TTL)
	}

	long, err := svc.Login(context.Background(), ports.LoginInput{Email: "carol@example.com", Password: "pass123", RememberMe: true})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if long.TTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day ttl, got %s", long.TTL)
	}

	claims, err := tokens.Validate(long.Token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 29*24*time.Hour {
		t.Fatalf("remember-me token expires too early: %s", remaining)
	}
}

func TestAuthService_Login_InvalidPasswordAndUnknownEmail(t *testing.T) {
	repo := newStubUserRepo()
	events := &recordedEvents{}
	svc, _ := newTestAuthService(t, repo, AuthOptions{Events: events})
	register(t, svc, "dave@example.com")

	if _, err := svc.Login(context.Background(), ports.LoginInput{Email: "dave@example.com", Password: "badpass"}); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), ports.LoginInput{Email: "ghost@example.com", Password: "pass"}); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	failed := 0
	for _, ty := range events.types() {
		if ty == domain.EventLoginFailed {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 login_failed events, got %d", failed)
	}
}

func TestAuthService_Login_RepositoryError(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection reset")
	svc, _ := newTestAuthService(t, repo, AuthOptions{})

	_, err := svc.Login(context.Background(), ports.LoginInput{Email: "a@example.com", Password: "x"})
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected infrastructure error to surface, got %v", err)
	}
}

func TestAuthService_Login_Throttled(t *testing.T) {
	repo := newStubUserRepo()
	throttle := &stubThrottle{failures: map[string]int{}, max: 2}
	svc, _ := newTestAuthService(t, repo, AuthOptions{Throttle: throttle})
	register(t, svc, "erin@example.com")

	for i := 0; i < 2; i++ {
		_, _ = svc.Login(context.Background(), ports.LoginInput{Email: "erin@example.com", Password: "wrong"})
	}
	if _, err := svc.Login(context.Background(), ports.LoginInput{Email: "erin@example.com", Password: "pass123"}); err != domain.ErrTooManyAttempts {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	throttle.failures = map[string]int{"erin@example.com": 1}
	if _, err := svc.Login(context.Background(), ports.LoginInput{Email: "erin@example.com", Password: "pass123"}); err != nil {
		t.Fatalf("expected login to succeed below threshold: %v", err)
	}
	if throttle.failures["erin@example.com"] != 0 {
		t.Fatalf("expected successful login to reset failures")
	}
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(t, repo, AuthOptions{})
	reg := register(t, svc, "frank@example.com")

	res, err := svc.Refresh(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if res.TTL != DefaultTokenTTL {
		t.Fatalf("expected default ttl, got %s", res.TTL)
	}
	if _, err := tokens.Validate(res.Token); err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), "deleted-user"); err != domain.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated for unknown user, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), ""); err != domain.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated for empty id, got %v", err)
	}
}
