// Package session is the per-request view of who is signed in.
//
// A Manager is built once at startup. For every request the auth middleware calls
// Open with the cookie token and then Init, which performs the session check. Until
// Init completes the Store reports IsLoading; if the identity backend cannot be reached
// it stays loading for the whole request and the router suspends.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sessionBackend "mastery/internal/adapters/session"
	"mastery/internal/domain/enrollment"
	"mastery/internal/domain/identity"
)

// ErrUnavailable means the session check could not complete.
var ErrUnavailable = errors.New("session check could not complete")

// Provider is the identity backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (identity.Credentials, error)
	SignUp(ctx context.Context, in identity.SignUpInput) (identity.Credentials, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (identity.Identity, identity.Profile, error)
	// Refresh exchanges a refresh token for new credentials. identity.ErrUnauthorized
	// means the refresh token is no longer valid.
	Refresh(ctx context.Context, refreshToken string) (identity.Credentials, error)
}

// EnrollmentReader loads the enrollment for a user.
type EnrollmentReader interface {
	GetByUserID(ctx context.Context, userID string) (enrollment.Enrollment, error)
}

// Manager opens Stores. It is safe for concurrent use.
type Manager struct {
	backend     sessionBackend.Backend
	provider    Provider
	enrollments EnrollmentReader
	now         func() time.Time
}

// NewManager creates a Manager.
func NewManager(backend sessionBackend.Backend, provider Provider, enrollments EnrollmentReader) *Manager {
	return &Manager{backend: backend, provider: provider, enrollments: enrollments, now: time.Now}
}

// Open returns a Store for the given cookie token. The Store is loading until Init.
func (m *Manager) Open(token string) *Store {
	return &Store{m: m, token: token, loading: true}
}

// Store holds one request's session state.
// INVARIANT: profile and enrollment are nil whenever identity is nil
type Store struct {
	m *Manager

	mu          sync.Mutex
	token       string
	accessToken string
	loading     bool
	changed     bool
	identity    *identity.Identity
	profile     *identity.Profile
	enrollment  *enrollment.Enrollment
}

// Init runs the session check.
// PRE: called once, before any other method
// POST: IsLoading is false unless ErrUnavailable is returned
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		s.loading = false
		return nil
	}

	rec, ok, err := s.m.backend.Get(ctx, s.token)
	if err != nil {
		slog.Warn("session_check_failed", "stage", "backend", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		s.forget()
		return nil
	}

	id, profile, err := s.m.provider.CurrentUser(ctx, rec.AccessToken)
	if errors.Is(err, identity.ErrUnauthorized) && rec.RefreshToken != "" {
		return s.refresh(ctx, rec)
	}
	if errors.Is(err, identity.ErrUnauthorized) {
		s.expire(ctx, rec.Identity.ID)
		return nil
	}
	if err != nil {
		slog.Warn("session_check_failed", "stage", "identity", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.accessToken = rec.AccessToken
	s.identity = &id
	s.profile = &profile
	s.loadEnrollment(ctx)
	s.loading = false
	return nil
}

// refresh renews an expired access token and moves the session to a new record.
// The new record keeps the original CreatedAt so the session lifetime is unchanged.
// Caller holds s.mu.
func (s *Store) refresh(ctx context.Context, rec sessionBackend.Record) error {
	creds, err := s.m.provider.Refresh(ctx, rec.RefreshToken)
	if errors.Is(err, identity.ErrUnauthorized) {
		s.expire(ctx, rec.Identity.ID)
		return nil
	}
	if err != nil {
		slog.Warn("session_check_failed", "stage", "refresh", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = rec.RefreshToken
	}

	token, err := s.m.backend.Create(ctx, sessionBackend.Record{
		Identity:     creds.Identity,
		Profile:      creds.Profile,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		CreatedAt:    rec.CreatedAt,
	})
	if err != nil {
		slog.Warn("session_check_failed", "stage", "backend", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.discard(ctx)
	s.token = token
	s.changed = true
	s.accessToken = creds.AccessToken
	s.identity = &creds.Identity
	s.profile = &creds.Profile
	s.loadEnrollment(ctx)
	s.loading = false
	slog.Info("auth_event", "event", "session_refreshed", "user_id", creds.Identity.ID)
	return nil
}

// expire drops a session the identity backend no longer accepts. Caller holds s.mu.
func (s *Store) expire(ctx context.Context, userID string) {
	slog.Info("auth_event", "event", "session_expired", "user_id", userID)
	_ = s.m.backend.Delete(ctx, s.token)
	s.forget()
}

// CurrentIdentity returns the signed-in identity, or nil.
func (s *Store) CurrentIdentity() *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// CurrentProfile returns the signed-in user's profile, or nil.
func (s *Store) CurrentProfile() *identity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// CurrentEnrollment returns the signed-in user's enrollment, or nil.
func (s *Store) CurrentEnrollment() *enrollment.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enrollment == nil {
		return nil
	}
	e := *s.enrollment
	return &e
}

// IsLoading reports whether the session check has not completed.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Token returns the session cookie value; empty when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// TokenChanged reports whether the cookie must be rewritten.
func (s *Store) TokenChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// SignIn authenticates and starts a new session.
// PRE: none
// POST: On success identity, profile and enrollment are populated and Token is a new value
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	creds, err := s.m.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.start(ctx, creds); err != nil {
		return err
	}
	s.loadEnrollment(ctx)
	slog.Info("auth_event", "event", "login_success", "user_id", creds.Identity.ID)
	return nil
}

// SignUp registers a user and, when the backend issued a token, starts a session.
// PRE: none
// POST: On success identity and profile are populated; enrollment is nil
func (s *Store) SignUp(ctx context.Context, in identity.SignUpInput) error {
	creds, err := s.m.provider.SignUp(ctx, in)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if creds.AccessToken == "" {
		// Email confirmation pending: known for this request only.
		s.discard(ctx)
		s.identity = &creds.Identity
		s.profile = &creds.Profile
		s.enrollment = nil
		s.loading = false
		return nil
	}
	if err := s.start(ctx, creds); err != nil {
		return err
	}
	s.enrollment = nil
	return nil
}

// SignOut ends the session.
// POST: IsLoading is false; identity, profile and enrollment are nil; Token is empty
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" {
		if err := s.m.provider.SignOut(ctx, s.accessToken); err != nil {
			slog.Warn("auth_event", "event", "logout_revoke_failed", "error", err)
		}
	}
	userID := ""
	if s.identity != nil {
		userID = s.identity.ID
	}
	s.discard(ctx)
	s.forget()
	slog.Info("auth_event", "event", "logout", "user_id", userID)
	return nil
}

// RefreshEnrollment re-reads the enrollment for the current identity. No-op without one.
func (s *Store) RefreshEnrollment(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	e, err := s.m.enrollments.GetByUserID(ctx, s.identity.ID)
	if errors.Is(err, enrollment.ErrNotFound) {
		s.enrollment = nil
		return nil
	}
	if err != nil {
		return err
	}
	s.enrollment = &e
	return nil
}

// start replaces any existing session record with one for creds.
// Caller holds s.mu.
func (s *Store) start(ctx context.Context, creds identity.Credentials) error {
	token, err := s.m.backend.Create(ctx, sessionBackend.Record{
		Identity:     creds.Identity,
		Profile:      creds.Profile,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		CreatedAt:    s.m.now(),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.discard(ctx)
	s.token = token
	s.changed = true
	s.accessToken = creds.AccessToken
	s.identity = &creds.Identity
	s.profile = &creds.Profile
	s.loading = false
	return nil
}

// discard deletes the current record, if any. Caller holds s.mu.
func (s *Store) discard(ctx context.Context) {
	if s.token == "" {
		return
	}
	if err := s.m.backend.Delete(ctx, s.token); err != nil {
		slog.Warn("session_delete_failed", "error", err)
	}
	s.token = ""
	s.changed = true
}

// forget clears cached state. Caller holds s.mu.
func (s *Store) forget() {
	if s.token != "" {
		s.changed = true
	}
	s.token = ""
	s.accessToken = ""
	s.identity = nil
	s.profile = nil
	s.enrollment = nil
	s.loading = false
}

// loadEnrollment fills s.enrollment. A failed read leaves it nil. Caller holds s.mu.
func (s *Store) loadEnrollment(ctx context.Context) {
	s.enrollment = nil
	if s.identity == nil {
		return
	}
	e, err := s.m.enrollments.GetByUserID(ctx, s.identity.ID)
	if err != nil {
		if !errors.Is(err, enrollment.ErrNotFound) {
			slog.Error("enrollment_load_failed", "user_id", s.identity.ID, "error", err)
		}
		return
	}
	s.enrollment = &e
}

type contextKey struct{}

// WithStore returns a context carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the Store set by WithStore, or nil.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(contextKey{}).(*Store)
	return s
}
