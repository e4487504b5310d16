package api

import (
	"context"
	"net/http"

	"library-portal/library"
)

type CategoriesAPI struct{ c *Client }

type CategoryForm struct {
	Name string `json:"name"`
}

func (c *CategoriesAPI) List(ctx context.Context) ([]*library.Category, error) {
	var out []*library.Category
	if err := c.c.doJSON(ctx, http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CategoriesAPI) Get(ctx context.Context, id int64) (*library.Category, error) {
	var out library.Category
	if err := c.c.doJSON(ctx, http.MethodGet, idPath("categories", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *CategoriesAPI) Create(ctx context.Context, form CategoryForm) (*library.Category, error) {
	var out library.Category
	if err := c.c.doJSON(ctx, http.MethodPost, "/categories", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *CategoriesAPI) Update(ctx context.Context, id int64, form CategoryForm) (*library.Category, error) {
	var out library.Category
	if err := c.c.doJSON(ctx, http.MethodPut, idPath("categories", id), nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *CategoriesAPI) Delete(ctx context.Context, id int64) error {
	return c.c.doJSON(ctx, http.MethodDelete, idPath("categories", id), nil, nil, nil)
}
