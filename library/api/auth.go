package api

import (
	"context"
	"net/http"

	"library-portal/library"
)

type AuthAPI struct{ c *Client }

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Token   string       `json:"token"`
	Role    library.Role `json:"role"`
	Email   string       `json:"email"`
	Message string       `json:"message"`
}

// MessageResponse is a body carrying only a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     library.Role `json:"role"`
}

func (a *AuthAPI) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := a.c.doJSON(ctx, http.MethodPost, "/auth/login", nil, credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account. The role is always USER.
func (a *AuthAPI) Signup(ctx context.Context, email, password string) (*MessageResponse, error) {
	var out MessageResponse
	req := signupRequest{Email: email, Password: password, Role: library.RoleUser}
	if err := a.c.doJSON(ctx, http.MethodPost, "/auth/signup", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
