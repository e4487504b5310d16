package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/apitest"
	"library-portal/library/store"
)

type fixture struct {
	backend *apitest.Backend
	storage *store.Store
	client  *api.Client
	router  *library.Router
	session *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "session.db"), filepath.Join(dir, "session.key"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	backend := apitest.New(t)
	client := api.NewClient(backend.URL(), st)
	router := library.NewRouter(library.RouteLogin)
	return &fixture{
		backend: backend,
		storage: st,
		client:  client,
		router:  router,
		session: New(st, client, router),
	}
}

func (f *fixture) persisted(t *testing.T) (token, role, email string) {
	t.Helper()
	var err error
	token, err = f.storage.Get(store.KeyToken)
	require.NoError(t, err)
	role, err = f.storage.Get(store.KeyRole)
	require.NoError(t, err)
	email, err = f.storage.Get(store.KeyEmail)
	require.NoError(t, err)
	return token, role, email
}

func TestLoginPersistsAndNavigatesLibrarianToDashboard(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("lib@example.com", "pw", library.RoleLibrarian)

	res := f.session.Login(context.Background(), "lib@example.com", "pw")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Login successful", res.Message)

	token, role, email := f.persisted(t)
	assert.NotEmpty(t, token)
	assert.Equal(t, "LIBRARIAN", role)
	assert.Equal(t, "lib@example.com", email)

	cur, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, library.Session{Email: "lib@example.com", Role: library.RoleLibrarian}, cur)
	assert.True(t, f.session.IsLibrarian())
	assert.False(t, f.session.IsUser())
	assert.Equal(t, library.RouteAdminDashboard, f.router.Current())
}

func TestLoginNavigatesUserHome(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("reader@example.com", "pw", library.RoleUser)

	res := f.session.Login(context.Background(), "reader@example.com", "pw")
	require.True(t, res.Success)
	assert.True(t, f.session.IsUser())
	assert.Equal(t, library.RouteHome, f.router.Current())
}

func TestLoginFailureReturnsBackendMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("reader@example.com", "pw", library.RoleUser)

	res := f.session.Login(context.Background(), "reader@example.com", "wrong")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Message)
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, library.RouteLogin, f.router.Current(), "already on login, no extra navigation")
	assert.Len(t, f.backend.RequestsTo(http.MethodPost, "/auth/login"), 1)
}

func TestLoginNetworkFailureUsesFallback(t *testing.T) {
	f := newFixture(t)
	client := api.NewClient("http://127.0.0.1:1/api", f.storage)
	s := New(f.storage, client, f.router)

	res := s.Login(context.Background(), "a@example.com", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, msgLoginFailed, res.Message)
}

func TestSignupDoesNotAuthenticate(t *testing.T) {
	f := newFixture(t)

	res := f.session.Signup(context.Background(), "Ada", "ada@example.com", "secret1")
	require.True(t, res.Success)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.False(t, f.session.IsAuthenticated())

	token, _, _ := f.persisted(t)
	assert.Empty(t, token)

	res = f.session.Signup(context.Background(), "Ada", "ada@example.com", "secret1")
	assert.False(t, res.Success)
	assert.Equal(t, "Email already registered", res.Message)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	require.True(t, f.session.Login(context.Background(), "reader@example.com", "pw").Success)

	for i := 0; i < 3; i++ {
		f.session.Logout()
		assert.False(t, f.session.IsAuthenticated())
		assert.False(t, f.session.IsUser())
		assert.False(t, f.session.IsLibrarian())
		token, role, email := f.persisted(t)
		assert.Empty(t, token+role+email)
		assert.Equal(t, library.RouteHome, f.router.Current())
	}
}

func TestUnauthorizedResponseClearsSession(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	require.True(t, f.session.Login(context.Background(), "reader@example.com", "pw").Success)
	f.router.Navigate(library.RouteBooks)

	f.backend.Fail(http.MethodGet, "/books", http.StatusUnauthorized, map[string]string{"message": "Token expired"})
	_, err := f.client.Books.List(context.Background())
	require.True(t, api.IsUnauthorized(err))

	token, role, email := f.persisted(t)
	assert.Empty(t, token+role+email)
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, library.RouteLogin, f.router.Current())
}

func TestConcurrentUnauthorizedNavigatesOnce(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("lib@example.com", "pw", library.RoleLibrarian)
	require.True(t, f.session.Login(context.Background(), "lib@example.com", "pw").Success)
	before := len(f.router.History())

	f.backend.Fail(http.MethodGet, "/books", http.StatusUnauthorized, nil)
	f.backend.Fail(http.MethodGet, "/users", http.StatusUnauthorized, nil)

	var wg sync.WaitGroup
	for _, fetch := range []func(context.Context) error{
		func(ctx context.Context) error { _, err := f.client.Books.List(ctx); return err },
		func(ctx context.Context) error { _, err := f.client.Users.List(ctx); return err },
		func(ctx context.Context) error { _, err := f.client.Categories.List(ctx); return err },
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetch(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, library.RouteLogin, f.router.Current())
	assert.Len(t, f.router.History(), before+1)
}

func TestInitializeRestoresPersistedSession(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	require.NoError(t, f.storage.SetAll(map[string]string{
		store.KeyToken: f.backend.Token("reader@example.com"),
		store.KeyRole:  "USER",
		store.KeyEmail: "reader@example.com",
	}))

	s := New(f.storage, f.client, f.router)
	assert.True(t, s.Loading())
	require.NoError(t, s.Initialize())
	assert.False(t, s.Loading())

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "reader@example.com", cur.Email)
	assert.True(t, s.IsUser())
	assert.Empty(t, f.backend.Requests(), "initialize must not call the backend")
}

func TestInitializeWithoutTokenIsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.storage.SetAll(map[string]string{store.KeyRole: "LIBRARIAN", store.KeyEmail: "x@example.com"}))

	require.NoError(t, f.session.Initialize())
	assert.False(t, f.session.Loading())
	assert.False(t, f.session.IsAuthenticated())
	assert.False(t, f.session.IsLibrarian())
}

func TestInitializeTrustsOpaqueToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.storage.SetAll(map[string]string{
		store.KeyToken: "opaque-token",
		store.KeyRole:  "LIBRARIAN",
		store.KeyEmail: "lib@example.com",
	}))

	require.NoError(t, f.session.Initialize())
	assert.True(t, f.session.IsLibrarian())
}

func TestInitializeDiscardsExpiredJWT(t *testing.T) {
	f := newFixture(t)
	f.backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	f.backend.TokenTTL = -time.Minute
	require.NoError(t, f.storage.SetAll(map[string]string{
		store.KeyToken: f.backend.Token("reader@example.com"),
		store.KeyRole:  "USER",
		store.KeyEmail: "reader@example.com",
	}))

	require.NoError(t, f.session.Initialize())
	assert.False(t, f.session.IsAuthenticated())
	token, role, email := f.persisted(t)
	assert.Empty(t, token+role+email)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	assert.True(t, tokenExpired(sign(jwt.MapClaims{"exp": now.Add(-time.Second).Unix()}), now))
	assert.False(t, tokenExpired(sign(jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), now))
	assert.False(t, tokenExpired(sign(jwt.MapClaims{"sub": "no-exp"}), now))
	assert.False(t, tokenExpired("not-a-jwt", now))
}

type brokenStorage struct{ err error }

func (b brokenStorage) Get(string) (string, error)      { return "", b.err }
func (b brokenStorage) SetAll(map[string]string) error { return b.err }
func (b brokenStorage) Clear() error                    { return b.err }

type stubAuth struct{}

func (stubAuth) Login(context.Context, string, string) (*api.LoginResponse, error) {
	return &api.LoginResponse{Token: "t", Role: library.RoleUser, Email: "u@example.com"}, nil
}

func (stubAuth) Signup(context.Context, string, string) (*api.MessageResponse, error) {
	return &api.MessageResponse{}, nil
}

func TestStorageFailures(t *testing.T) {
	router := library.NewRouter(library.RouteLogin)
	s := newStore(brokenStorage{err: errors.New("disk full")}, stubAuth{}, router)

	assert.Error(t, s.Initialize())
	assert.False(t, s.Loading())

	res := s.Login(context.Background(), "u@example.com", "pw")
	assert.False(t, res.Success)
	assert.Equal(t, msgSaveFailed, res.Message)
	assert.False(t, s.IsAuthenticated(), "memory must not diverge from storage")
	assert.Equal(t, library.RouteLogin, router.Current())

	res = s.Signup(context.Background(), "U", "u@example.com", "pw")
	assert.True(t, res.Success)
	assert.Equal(t, msgSignupOK, res.Message)
}
