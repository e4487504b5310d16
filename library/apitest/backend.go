// Package apitest runs an in-memory library backend on httptest for tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"library-portal/library"
)

var signingKey = []byte("apitest-signing-key")

// Request is a request the backend received.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type account struct {
	user     *library.User
	password string
}

type failure struct {
	status  int
	payload any
}

// Backend is a fake of the library REST service mounted under /api.
type Backend struct {
	server *httptest.Server

	mu           sync.Mutex
	accounts     map[string]*account
	books        map[int64]*library.Book
	categories   map[int64]*library.Category
	reservations map[int64]*library.Reservation
	nextID       int64
	failures     map[string]failure
	requests     []Request

	// Now is the backend clock.
	Now func() time.Time
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
}

// New starts a backend that is closed when t finishes.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		accounts:     make(map[string]*account),
		books:        make(map[int64]*library.Book),
		categories:   make(map[int64]*library.Category),
		reservations: make(map[int64]*library.Reservation),
		failures:     make(map[string]failure),
		Now:          time.Now,
		TokenTTL:     time.Hour,
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API base URL, including the /api prefix.
func (b *Backend) URL() string { return b.server.URL + "/api" }

// Origin is the server origin, without the /api prefix.
func (b *Backend) Origin() string { return b.server.URL }

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

// AddAccount registers an account directly.
func (b *Backend) AddAccount(email, password string, role library.Role) *library.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccount(email, password, role)
}

func (b *Backend) addAccount(email, password string, role library.Role) *library.User {
	u := &library.User{ID: b.id(), Email: email, Role: role, CreatedAt: b.Now().UTC()}
	b.accounts[email] = &account{user: u, password: password}
	return u
}

// Token issues a signed token for email that expires after TokenTTL.
func (b *Backend) Token(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token(email)
}

func (b *Backend) token(email string) string {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": jwt.NewNumericDate(b.Now().Add(b.TokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *Backend) AddCategory(name string) *library.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &library.Category{ID: b.id(), Name: name}
	b.categories[c.ID] = c
	return c
}

// AddBook stores a copy of book with a fresh id.
func (b *Backend) AddBook(book library.Book) *library.Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	book.ID = b.id()
	if book.Status == "" {
		book.Status = library.BookAvailable
	}
	if ref, ok := book.CategoryRef(); ok {
		book.Category = b.categories[ref]
	}
	b.books[book.ID] = &book
	cp := book
	return &cp
}

// AddReservation stores a reservation of bookID by email.
func (b *Backend) AddReservation(bookID int64, email string, reserved, due time.Time, status library.ReservationStatus) *library.Reservation {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &library.Reservation{
		ID:              b.id(),
		Book:            b.books[bookID],
		ReservationDate: reserved,
		DueDate:         due,
		Status:          status,
	}
	if a, ok := b.accounts[email]; ok {
		r.User = a.user
	}
	if status == library.ReservationActive && r.Book != nil {
		r.Book.Status = library.BookReserved
	}
	b.reservations[r.ID] = r
	cp := *r
	return &cp
}

// Fail makes every request for method and path (relative to /api) answer
// with status and payload.
func (b *Backend) Fail(method, path string, status int, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, payload: payload}
}

// Book returns a snapshot of the stored book.
func (b *Backend) Book(id int64) (library.Book, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.books[id]
	if !ok {
		return library.Book{}, false
	}
	return *bk, true
}

// User returns a snapshot of the account registered under email.
func (b *Backend) User(email string) (library.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[email]
	if !ok {
		return library.User{}, false
	}
	return *a.user, true
}

// Requests returns every request received so far, oldest first.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns the requests received for method and path.
func (b *Backend) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(b.record, b.injectFailures)

		r.Post("/auth/login", b.handleLogin)
		r.Post("/auth/signup", b.handleSignup)

		r.Group(func(r chi.Router) {
			r.Use(b.authenticate)

			r.Get("/books", b.handleListBooks)
			r.Get("/books/{id}", b.handleGetBook)
			r.Get("/categories", b.handleListCategories)
			r.Get("/categories/{id}", b.handleGetCategory)
			r.Post("/reservations", b.handleCreateReservation)
			r.Get("/reservations/my", b.handleMyReservations)
			r.Get("/reservations/{id}", b.handleGetReservation)
			r.Patch("/reservations/{id}/return", b.handleReturnReservation)

			r.Group(func(r chi.Router) {
				r.Use(librarianOnly)

				r.Post("/books", b.handleCreateBook)
				r.Put("/books/{id}", b.handleUpdateBook)
				r.Delete("/books/{id}", b.handleDeleteBook)
				r.Patch("/books/{id}/status", b.handleBookStatus)
				r.Post("/categories", b.handleCreateCategory)
				r.Put("/categories/{id}", b.handleUpdateCategory)
				r.Delete("/categories/{id}", b.handleDeleteCategory)
				r.Get("/users", b.handleListUsers)
				r.Get("/users/{id}", b.handleGetUser)
				r.Patch("/users/{id}/blacklist", b.handleBlacklist(true))
				r.Patch("/users/{id}/unblacklist", b.handleBlacklist(false))
				r.Delete("/users/{id}", b.handleDeleteUser)
				r.Get("/reservations", b.handleListReservations)
				r.Delete("/reservations/{id}", b.handleDeleteReservation)
				r.Post("/files/upload", b.handleUpload)
			})
		})
	})
	return r
}

func apiPath(r *http.Request) string { return strings.TrimPrefix(r.URL.Path, "/api") }

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   apiPath(r),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		f, ok := b.failures[r.Method+" "+apiPath(r)]
		b.mu.Unlock()
		if ok {
			writeJSON(w, f.status, f.payload)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return signingKey, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(b.Now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		sub, _ := claims.GetSubject()
		b.mu.Lock()
		a, ok := b.accounts[sub]
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unknown account")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), a)))
	})
}

func librarianOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accountFrom(r.Context()).user.Role != library.RoleLibrarian {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter, what string, id int64) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", what, id))
}
