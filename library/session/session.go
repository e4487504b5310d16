// Package session holds the authenticated identity of the client.
//
// A Store is built once at startup, reads the persisted session in
// Initialize, and is cleared by Logout or by any 401 the access layer reports.
// The persisted values and the in-memory session are always updated together.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/logger"
	"library-portal/library/store"
)

const (
	msgLoginOK      = "Login successful!"
	msgLoginFailed  = "Login failed. Please check your credentials."
	msgSignupOK     = "Signup successful! Please login."
	msgSignupFailed = "Signup failed. Please try again."
	msgSaveFailed   = "Login succeeded but the session could not be saved."
)

// Storage persists the session values.
type Storage interface {
	Get(key string) (string, error)
	SetAll(values map[string]string) error
	Clear() error
}

// Authenticator performs the backend auth calls.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Signup(ctx context.Context, email, password string) (*api.MessageResponse, error)
}

// Result is the outcome of Login or Signup.
type Result struct {
	Success bool
	Message string
}

type Store struct {
	storage Storage
	auth    Authenticator
	nav     library.Navigator
	now     func() time.Time

	mu      sync.RWMutex
	current *library.Session
	loading bool
}

// New builds the store and subscribes it to the client's 401 event.
func New(storage Storage, client *api.Client, nav library.Navigator) *Store {
	s := newStore(storage, client.Auth, nav)
	client.OnUnauthorized(func(*api.Error) { s.expire() })
	return s
}

func newStore(storage Storage, auth Authenticator, nav library.Navigator) *Store {
	return &Store{
		storage: storage,
		auth:    auth,
		nav:     nav,
		now:     time.Now,
		loading: true,
	}
}

// Initialize loads the persisted session. No network call is made: an opaque
// token is trusted until the backend rejects it, while a JWT whose exp has
// passed is discarded immediately.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.loading = false }()

	token, err := s.storage.Get(store.KeyToken)
	if err != nil {
		return err
	}
	if token == "" {
		s.current = nil
		return nil
	}
	if tokenExpired(token, s.now()) {
		logger.Log.Info("persisted token has expired, discarding session")
		s.current = nil
		return s.storage.Clear()
	}

	role, err := s.storage.Get(store.KeyRole)
	if err != nil {
		return err
	}
	email, err := s.storage.Get(store.KeyEmail)
	if err != nil {
		return err
	}
	s.current = &library.Session{Email: email, Role: library.Role(role)}
	return nil
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// Login authenticates against the backend. On success the session is
// persisted and the client is sent to the role's landing page. Errors never
// escape; they become a failed Result carrying the backend's message.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		logger.Log.WithError(err).Info("login failed")
		return Result{Message: api.Message(err, msgLoginFailed)}
	}

	s.mu.Lock()
	err = s.storage.SetAll(map[string]string{
		store.KeyToken: resp.Token,
		store.KeyRole:  string(resp.Role),
		store.KeyEmail: resp.Email,
	})
	if err != nil {
		s.mu.Unlock()
		logger.Log.WithError(err).Error("persist session")
		return Result{Message: msgSaveFailed}
	}
	s.current = &library.Session{Email: resp.Email, Role: resp.Role}
	s.loading = false
	s.mu.Unlock()

	s.nav.Navigate(library.LandingRoute(resp.Role))

	msg := resp.Message
	if msg == "" {
		msg = msgLoginOK
	}
	return Result{Success: true, Message: msg}
}

// Signup registers a USER account. It does not log the account in.
// name is accepted for the form's sake; the backend has no field for it.
func (s *Store) Signup(ctx context.Context, name, email, password string) Result {
	resp, err := s.auth.Signup(ctx, email, password)
	if err != nil {
		logger.Log.WithError(err).WithField("name", name).Info("signup failed")
		return Result{Message: api.Message(err, msgSignupFailed)}
	}
	msg := resp.Message
	if msg == "" {
		msg = msgSignupOK
	}
	return Result{Success: true, Message: msg}
}

// Logout clears the session and returns to the home page. Safe to repeat.
func (s *Store) Logout() {
	s.clear()
	s.nav.Navigate(library.RouteHome)
}

// expire handles a 401 from any request: the session is cleared and the
// client is sent to the login page unless it is already there.
func (s *Store) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	if s.nav.Current() != library.RouteLogin {
		s.nav.Navigate(library.RouteLogin)
	}
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	if err := s.storage.Clear(); err != nil {
		logger.Log.WithError(err).Error("clear persisted session")
	}
	s.current = nil
}

// Current returns the active session, if any.
func (s *Store) Current() (library.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return library.Session{}, false
	}
	return *s.current, true
}

// Loading reports whether Initialize has not completed yet.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

func (s *Store) IsLibrarian() bool { return s.hasRole(library.RoleLibrarian) }

func (s *Store) IsUser() bool { return s.hasRole(library.RoleUser) }

func (s *Store) hasRole(role library.Role) bool {
	cur, ok := s.Current()
	return ok && cur.Role == role
}
