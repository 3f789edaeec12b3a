// Package session holds the authenticated user and their access token.
//
// The session is persisted under storage.KeyAuth so it survives restarts.
// A session whose token has expired is treated as absent.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/api"
	"github.com/studioform/storefront/internal/storage"
	"github.com/studioform/storefront/pkg/httpclient"
)

// DefaultTTL is assumed when the access token carries no expiry claim.
const DefaultTTL = 30 * time.Minute

// ErrNotAuthenticated is returned by operations that need a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Backend is the part of the API the session talks to.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.User, error)
}

var (
	_ Backend                = (*api.Client)(nil)
	_ httpclient.TokenSource = (*Store)(nil)
)

// Session is the persisted authentication state.
type Session struct {
	User            *api.User `json:"user"`
	Token           string    `json:"token"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// LogoutHook runs after the session is cleared.
type LogoutHook func()

// Store owns the current session.
type Store struct {
	lg      *zap.Logger
	storage storage.Storage
	backend Backend
	now     func() time.Time

	mu    sync.Mutex
	state Session
	hooks []LogoutHook
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store restored from s. A missing, corrupt or expired
// snapshot yields an empty session.
func NewStore(lg *zap.Logger, s storage.Storage, b Backend, opts ...Option) *Store {
	st := &Store{
		lg:      lg,
		storage: s,
		backend: b,
		now:     time.Now,
	}
	for _, o := range opts {
		o(st)
	}

	var saved Session
	ok, err := storage.LoadJSON(s, storage.KeyAuth, &saved)
	switch {
	case err != nil:
		lg.Warn("Discarding unreadable session", zap.Error(err))
	case !ok:
	case !saved.valid(st.now()):
		lg.Info("Stored session expired", zap.Time("expires_at", saved.ExpiresAt))
		st.persist(Session{})
	default:
		st.state = saved
	}
	return st
}

func (s Session) valid(now time.Time) bool {
	return s.IsAuthenticated && s.Token != "" && now.Before(s.ExpiresAt)
}

// OnLogout registers hooks run by Logout.
func (s *Store) OnLogout(hooks ...LogoutHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hooks...)
}

// Login authenticates with the backend and stores the session.
func (s *Store) Login(ctx context.Context, email, password string) (*api.User, error) {
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "login")
	}

	user := resp.User
	next := Session{
		User:            &user,
		Token:           resp.AccessToken,
		IsAuthenticated: true,
		ExpiresAt:       s.expiry(resp.AccessToken),
	}

	s.mu.Lock()
	s.state = next
	s.persist(next)
	s.mu.Unlock()

	s.lg.Info("Logged in", zap.String("user_id", user.ID), zap.Time("expires_at", next.ExpiresAt))
	return &user, nil
}

// Register creates an account and logs into it.
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	if _, err := s.backend.Register(ctx, req); err != nil {
		return nil, errors.Wrap(err, "register")
	}
	return s.Login(ctx, req.Email, req.Password)
}

// Logout clears the session and runs the logout hooks.
func (s *Store) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.state.IsAuthenticated
	s.state = Session{}
	s.persist(Session{})
	hooks := append([]LogoutHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	if wasAuthenticated {
		s.lg.Info("Logged out")
	}
}

// Token returns the access token, or "" when there is no live session.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.valid(s.now()) {
		return ""
	}
	return s.state.Token
}

// Current returns a copy of the live session.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.valid(s.now()) {
		return Session{}, false
	}
	cur := s.state
	if cur.User != nil {
		u := *cur.User
		cur.User = &u
	}
	return cur, true
}

// IsAuthenticated reports whether a live session exists.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// IsAdmin reports whether the live session belongs to an admin.
func (s *Store) IsAdmin() bool {
	cur, ok := s.Current()
	return ok && cur.User != nil && cur.User.IsAdmin
}

// persist writes v. Callers other than NewStore must hold s.mu so the
// snapshot on disk always matches the in-memory state.
func (s *Store) persist(v Session) {
	if err := storage.SaveJSON(s.storage, storage.KeyAuth, v); err != nil {
		s.lg.Error("Failed to persist session", zap.Error(err))
	}
}

// expiry reads the exp claim of token without verifying its signature.
func (s *Store) expiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		s.lg.Debug("Token is not a JWT, assuming default lifetime", zap.Error(err))
		return s.now().Add(DefaultTTL)
	}
	if claims.ExpiresAt == nil {
		return s.now().Add(DefaultTTL)
	}
	return claims.ExpiresAt.Time
}
