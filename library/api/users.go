package api

import (
	"context"
	"net/http"

	"library-portal/library"
)

type UsersAPI struct{ c *Client }

func (u *UsersAPI) List(ctx context.Context) ([]*library.User, error) {
	var out []*library.User
	if err := u.c.doJSON(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (u *UsersAPI) Get(ctx context.Context, id int64) (*library.User, error) {
	var out library.User
	if err := u.c.doJSON(ctx, http.MethodGet, idPath("users", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UsersAPI) Blacklist(ctx context.Context, id int64) error {
	return u.c.doJSON(ctx, http.MethodPatch, idPath("users", id, "blacklist"), nil, nil, nil)
}

func (u *UsersAPI) Unblacklist(ctx context.Context, id int64) error {
	return u.c.doJSON(ctx, http.MethodPatch, idPath("users", id, "unblacklist"), nil, nil, nil)
}

func (u *UsersAPI) Delete(ctx context.Context, id int64) error {
	return u.c.doJSON(ctx, http.MethodDelete, idPath("users", id), nil, nil, nil)
}
