// Package api is the client for the library backend's REST surface.
//
// Every request carries the persisted bearer token when one exists. A 401 from
// any request is reported to the handlers registered with OnUnauthorized
// before the error is returned to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"library-portal/library/logger"
)

const DefaultBaseURL = "http://localhost:8080/api"

// TokenSource yields the bearer token to attach, or "" for none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client issues requests against the backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource

	mu           sync.RWMutex
	unauthorized []func(*Error)

	Auth         *AuthAPI
	Books        *BooksAPI
	Categories   *CategoriesAPI
	Users        *UsersAPI
	Reservations *ReservationsAPI
	Files        *FilesAPI
}

type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// NewClient builds a client for baseURL. Trailing slashes are ignored.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Auth = &AuthAPI{c: c}
	c.Books = &BooksAPI{c: c}
	c.Categories = &CategoriesAPI{c: c}
	c.Users = &UsersAPI{c: c}
	c.Reservations = &ReservationsAPI{c: c}
	c.Files = &FilesAPI{c: c}
	return c
}

// BaseURL is the normalised backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized registers fn to run whenever a request is answered with 401.
func (c *Client) OnUnauthorized(fn func(*Error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = append(c.unauthorized, fn)
}

func (c *Client) emitUnauthorized(e *Error) {
	c.mu.RLock()
	handlers := slices.Clone(c.unauthorized)
	c.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON sends body (if any) as JSON and decodes the response into out (if any).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, path, out)
}

// send attaches the shared headers, performs req and classifies the outcome.
func (c *Client) send(req *http.Request, path string, out any) error {
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       path,
		"request_id": reqID,
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("api request failed")
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", req.Method, path, err)
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(req.Method, path, resp.StatusCode, data)
		log.WithField("error", apiErr.Payload.text()).Warn("api error")
		if apiErr.Status == http.StatusUnauthorized {
			c.emitUnauthorized(apiErr)
		}
		return apiErr
	}

	log.Debug("api success")
	if raw, ok := out.(*rawBody); ok {
		*raw = data
		return nil
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Method: req.Method, Path: path, Err: err}
	}
	return nil
}

func idPath(resource string, id int64, rest ...string) string {
	p := fmt.Sprintf("/%s/%d", resource, id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}
