package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-portal/library"
	"library-portal/library/apitest"
)

func newTestClient(t *testing.T, token *string) (*Client, *apitest.Backend) {
	t.Helper()
	backend := apitest.New(t)
	c := NewClient(backend.URL()+"/", TokenFunc(func() string { return *token }))
	return c, backend
}

func TestBearerTokenAttachedWhenPresent(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	token = backend.Token("reader@example.com")

	_, err := c.Books.List(context.Background())
	require.NoError(t, err)

	reqs := backend.RequestsTo(http.MethodGet, "/books")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+token, reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.NotEmpty(t, reqs[0].Header.Get("X-Request-ID"))
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	token := ""
	c, backend := newTestClient(t, &token)
	backend.AddAccount("reader@example.com", "pw", library.RoleUser)

	_, err := c.Auth.Login(context.Background(), "reader@example.com", "pw")
	require.NoError(t, err)

	reqs := backend.RequestsTo(http.MethodPost, "/auth/login")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}

func TestBaseURLTrailingSlashNormalised(t *testing.T) {
	c := NewClient("http://example.test/api///", nil)
	assert.Equal(t, "http://example.test/api", c.BaseURL())
	assert.Equal(t, "http://example.test/api/books/3", c.url(idPath("books", 3), nil))
}

func TestUnauthorizedEmitsEventAndReturnsError(t *testing.T) {
	token := "stale"
	c, backend := newTestClient(t, &token)

	var fired atomic.Int32
	c.OnUnauthorized(func(e *Error) {
		assert.Equal(t, "/categories", e.Path)
		fired.Add(1)
	})

	_, err := c.Categories.List(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.EqualValues(t, 1, fired.Load())
	assert.Len(t, backend.RequestsTo(http.MethodGet, "/categories"), 1, "no retry on 401")
}

func TestUnauthorizedReachesEverySubscriber(t *testing.T) {
	token := "stale"
	c, _ := newTestClient(t, &token)

	var first, second atomic.Int32
	c.OnUnauthorized(func(*Error) { first.Add(1) })
	c.OnUnauthorized(func(*Error) { second.Add(1) })

	_, err := c.Books.List(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 1, first.Load())
	assert.EqualValues(t, 1, second.Load())

	c.OnUnauthorized(func(*Error) {})
	_, err = c.Users.List(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 2, first.Load())
	assert.EqualValues(t, 2, second.Load())
}

func TestOrdinaryErrorPassesThroughWithoutEvent(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	token = backend.Token("reader@example.com")
	backend.Fail(http.MethodPost, "/reservations", http.StatusBadRequest, map[string]string{"error": "Book is not available"})

	fired := false
	c.OnUnauthorized(func(*Error) { fired = true })

	_, err := c.Reservations.Create(context.Background(), ReservationForm{BookID: "4", Days: 7})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Book is not available", apiErr.Payload.Error)
	assert.Equal(t, "Book is not available", Message(err, "fallback"))
	assert.False(t, fired)
	assert.Len(t, backend.RequestsTo(http.MethodPost, "/reservations"), 1, "no retry")
}

func TestMessagePrefersMessageThenError(t *testing.T) {
	both := newError("POST", "/auth/login", 400, []byte(`{"message":"m","error":"e"}`))
	onlyErr := newError("POST", "/auth/login", 400, []byte(`{"error":"e"}`))
	plain := newError("POST", "/auth/login", 500, []byte(`boom`))

	assert.Equal(t, "m", Message(both, "f"))
	assert.Equal(t, "e", Message(onlyErr, "f"))
	assert.Equal(t, "f", Message(plain, "f"))
	assert.Equal(t, "f", Message(assert.AnError, "f"))
}

func TestErrorMessagePrefersErrorThenMessage(t *testing.T) {
	both := newError("POST", "/reservations", 400, []byte(`{"error":"Book is not available","message":"Validation failed"}`))
	onlyMsg := newError("POST", "/reservations", 400, []byte(`{"message":"Validation failed"}`))
	plain := newError("POST", "/reservations", 500, []byte(`boom`))

	assert.Equal(t, "Book is not available", ErrorMessage(both, "f"))
	assert.Equal(t, "Validation failed", ErrorMessage(onlyMsg, "f"))
	assert.Equal(t, "f", ErrorMessage(plain, "f"))
	assert.Equal(t, "f", ErrorMessage(assert.AnError, "f"))
}

func TestMalformedPayloadIsTypedDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "not-a-number"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, nil)
	_, err := c.Books.Get(context.Background(), 1)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "/books/1", decErr.Path)
}

func TestTransportFailureIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.Books.List(context.Background())
	require.Error(t, err)

	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, "Failed to load books.", Message(err, "Failed to load books."))
}

func TestBookFormCoercesCategoryID(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("lib@example.com", "pw", library.RoleLibrarian)
	token = backend.Token("lib@example.com")
	cat := backend.AddCategory("Fiction")

	book, err := c.Books.Create(context.Background(), BookForm{
		Title:      "Dune",
		Author:     "Frank Herbert",
		CategoryID: " " + jsonInt(cat.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, book.Category)
	assert.Equal(t, cat.ID, book.Category.ID)

	reqs := backend.RequestsTo(http.MethodPost, "/books")
	require.Len(t, reqs, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
	assert.Equal(t, float64(cat.ID), sent["categoryId"])
	assert.Nil(t, sent["imageUrl"])
	assert.Equal(t, "AVAILABLE", sent["status"])
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestReservationFormCoercesBookID(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("reader@example.com", "pw", library.RoleUser)
	token = backend.Token("reader@example.com")
	book := backend.AddBook(library.Book{Title: "Emma", Author: "Jane Austen"})

	res, err := c.Reservations.Create(context.Background(), ReservationForm{BookID: jsonInt(book.ID), Days: 14})
	require.NoError(t, err)
	assert.Equal(t, library.ReservationActive, res.Status)

	reqs := backend.RequestsTo(http.MethodPost, "/reservations")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"bookId":`+jsonInt(book.ID)+`,"days":14}`, string(reqs[0].Body))
}

func TestUpdateStatusSendsQuery(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("lib@example.com", "pw", library.RoleLibrarian)
	token = backend.Token("lib@example.com")
	book := backend.AddBook(library.Book{Title: "Emma"})

	updated, err := c.Books.UpdateStatus(context.Background(), book.ID, library.BookReserved)
	require.NoError(t, err)
	assert.Equal(t, library.BookReserved, updated.Status)

	reqs := backend.RequestsTo(http.MethodPatch, "/books/"+jsonInt(book.ID)+"/status")
	require.Len(t, reqs, 1)
	assert.Equal(t, "status=RESERVED", reqs[0].Query)
}

func TestSignupAlwaysSendsUserRole(t *testing.T) {
	token := ""
	c, backend := newTestClient(t, &token)

	out, err := c.Auth.Signup(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", out.Message)

	reqs := backend.RequestsTo(http.MethodPost, "/auth/signup")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"email":"new@example.com","password":"secret1","role":"USER"}`, string(reqs[0].Body))
	u, ok := backend.User("new@example.com")
	require.True(t, ok)
	assert.Equal(t, library.RoleUser, u.Role)
}

func TestUploadUsesMultipartAndReturnsURL(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("lib@example.com", "pw", library.RoleLibrarian)
	token = backend.Token("lib@example.com")

	url, err := c.Files.Upload(context.Background(), "covers/dune.png", strings.NewReader("\x89PNG fake"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/dune.png", url)

	reqs := backend.RequestsTo(http.MethodPost, "/files/upload")
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Equal(t, "Bearer "+token, reqs[0].Header.Get("Authorization"))
}

func TestParseUploadURL(t *testing.T) {
	cases := map[string]string{
		`"/uploads/a.png"`:              "/uploads/a.png",
		`{"url":"/uploads/b.png"}`:      "/uploads/b.png",
		`{"imageUrl":"/uploads/c.png"}`: "/uploads/c.png",
		"/uploads/d.png\n":              "/uploads/d.png",
	}
	for body, want := range cases {
		got, err := parseUploadURL([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}

	_, err := parseUploadURL([]byte("  "))
	assert.ErrorIs(t, err, errEmptyUpload)
	_, err = parseUploadURL([]byte(`{}`))
	assert.ErrorIs(t, err, errEmptyUpload)
}

func TestEmptyDeleteBodyIsFine(t *testing.T) {
	var token string
	c, backend := newTestClient(t, &token)
	backend.AddAccount("lib@example.com", "pw", library.RoleLibrarian)
	token = backend.Token("lib@example.com")
	cat := backend.AddCategory("Poetry")

	require.NoError(t, c.Categories.Delete(context.Background(), cat.ID))
	list, err := c.Categories.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
