package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorPayload is the error body the backend returns.
type ErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p ErrorPayload) text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Error
}

// Error is a non-2xx response.
type Error struct {
	Method  string
	Path    string
	Status  int
	Body    []byte
	Payload ErrorPayload
}

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status, Body: body}
	_ = json.Unmarshal(body, &e.Payload)
	return e
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if t := e.Payload.text(); t != "" {
		msg += ": " + t
	}
	return msg
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *Error) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// DecodeError is a 2xx response whose body does not match the expected contract.
type DecodeError struct {
	Method string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// Message returns the backend's message for err, then its error field, then
// fallback. Login and signup read the payload in this order.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if t := apiErr.Payload.text(); t != "" {
			return t
		}
	}
	return fallback
}

// ErrorMessage returns the backend's error field for err, then its message,
// then fallback. Page actions read the payload in this order.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Payload.Error != "" {
			return apiErr.Payload.Error
		}
		if apiErr.Payload.Message != "" {
			return apiErr.Payload.Message
		}
	}
	return fallback
}
