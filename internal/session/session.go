package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Amund211/notesync/internal/app"
	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/Amund211/notesync/internal/logging"
	"github.com/Amund211/notesync/internal/reporting"
)

// Session tracks who is logged in. Create one per client with New and call Init before use.
type Session struct {
	client         *cache.Client
	authCheckQuery app.AuthCheckQuery
	login          app.Login
	logout         app.Logout
	onExpired      func(ctx context.Context)

	mu   sync.RWMutex
	user *domain.User
	sub  *cache.Subscription[*domain.User]
}

type Option func(*Session)

// Called after the session has been torn down because the server rejected it
func WithOnExpired(onExpired func(ctx context.Context)) Option {
	return func(s *Session) {
		s.onExpired = onExpired
	}
}

func New(
	client *cache.Client,
	authCheckQuery app.AuthCheckQuery,
	login app.Login,
	logout app.Logout,
	opts ...Option,
) *Session {
	s := &Session{
		client:         client,
		authCheckQuery: authCheckQuery,
		login:          login,
		logout:         logout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init resolves the current user and keeps following changes to it
func (s *Session) Init(ctx context.Context) error {
	s.mu.RLock()
	subscribed := s.sub != nil
	s.mu.RUnlock()

	if !subscribed {
		// Starts the fetch awaited below
		sub := cache.Subscribe(s.client, s.authCheckQuery(), s.onAuthState)
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
	}

	user, err := cache.Fetch(ctx, s.client, s.authCheckQuery())
	if err != nil {
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if user == nil {
		logging.FromContext(ctx).InfoContext(ctx, "Not authenticated")
	}
	return nil
}

func (s *Session) onAuthState(state cache.State[*domain.User]) {
	if !state.HasData || state.Status != cache.StatusSuccess {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = state.Data
}

func (s *Session) Login(ctx context.Context, input domain.LoginInput) cache.Outcome[domain.User] {
	outcome := s.login(ctx, input)
	if !outcome.Succeeded() {
		return outcome
	}

	user := outcome.Result
	s.mu.Lock()
	previous := s.user
	s.user = &user
	s.mu.Unlock()

	if previous == nil || previous.ID != user.ID {
		s.client.Remove(app.UserData())
	}

	logging.FromContext(ctx).InfoContext(ctx, "Logged in", slog.String("userID", user.ID))
	return outcome
}

// Logout ends the session and drops every cached entry, as they all belong to the user
func (s *Session) Logout(ctx context.Context) cache.Outcome[struct{}] {
	outcome := s.logout(ctx)
	if outcome.Err != nil && !errors.Is(outcome.Err, domain.ErrUnauthorized) {
		return outcome
	}

	s.clear()
	s.client.Remove(cache.MatchAll())
	return outcome
}

func (s *Session) clear() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.user
	s.user = nil
	return previous
}

// HandleUnauthorized is the transport's 401 interceptor.
// During an active session it tears the session down and returns domain.ErrSessionExpired.
func (s *Session) HandleUnauthorized(ctx context.Context, err error) error {
	previous := s.clear()
	if previous == nil {
		return err
	}

	logging.FromContext(ctx).WarnContext(ctx, "Session expired", slog.String("userID", previous.ID))
	s.client.Remove(app.UserData())
	s.client.Invalidate(app.AuthFamily())

	if s.onExpired != nil {
		s.onExpired(ctx)
	}

	return fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
}

func (s *Session) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// Attach the current user to logs and error reports
func (s *Session) AddUserToContext(ctx context.Context) context.Context {
	user, ok := s.CurrentUser()
	if !ok {
		return ctx
	}
	ctx = reporting.SetUserIDInContext(ctx, user.ID)
	return logging.AddMetaToContext(ctx, slog.String("userID", user.ID))
}

func (s *Session) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
