package api

import (
	"context"
	"net/http"
	"net/url"

	"library-portal/library"
)

type BooksAPI struct{ c *Client }

// BookForm is the create/update input. CategoryID holds the raw selected
// value and is coerced to a number before it is sent.
type BookForm struct {
	Title      string
	Author     string
	Genre      string
	Language   string
	ISBN       string
	CategoryID string
	ImageURL   string
	Status     library.BookStatus
}

type bookPayload struct {
	Title      string             `json:"title"`
	Author     string             `json:"author"`
	Genre      string             `json:"genre"`
	Language   string             `json:"language"`
	ISBN       string             `json:"isbn"`
	CategoryID *int64             `json:"categoryId"`
	ImageURL   *string            `json:"imageUrl"`
	Status     library.BookStatus `json:"status"`
}

func (f BookForm) payload() bookPayload {
	p := bookPayload{
		Title:      f.Title,
		Author:     f.Author,
		Genre:      f.Genre,
		Language:   f.Language,
		ISBN:       f.ISBN,
		CategoryID: coerceID(f.CategoryID),
		Status:     f.Status,
	}
	if f.ImageURL != "" {
		img := f.ImageURL
		p.ImageURL = &img
	}
	if p.Status == "" {
		p.Status = library.BookAvailable
	}
	return p
}

func (b *BooksAPI) List(ctx context.Context) ([]*library.Book, error) {
	var out []*library.Book
	if err := b.c.doJSON(ctx, http.MethodGet, "/books", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BooksAPI) Get(ctx context.Context, id int64) (*library.Book, error) {
	var out library.Book
	if err := b.c.doJSON(ctx, http.MethodGet, idPath("books", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BooksAPI) Create(ctx context.Context, form BookForm) (*library.Book, error) {
	var out library.Book
	if err := b.c.doJSON(ctx, http.MethodPost, "/books", nil, form.payload(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BooksAPI) Update(ctx context.Context, id int64, form BookForm) (*library.Book, error) {
	var out library.Book
	if err := b.c.doJSON(ctx, http.MethodPut, idPath("books", id), nil, form.payload(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *BooksAPI) Delete(ctx context.Context, id int64) error {
	return b.c.doJSON(ctx, http.MethodDelete, idPath("books", id), nil, nil, nil)
}

// UpdateStatus sets the availability of a book directly.
func (b *BooksAPI) UpdateStatus(ctx context.Context, id int64, status library.BookStatus) (*library.Book, error) {
	var out library.Book
	q := url.Values{"status": {string(status)}}
	if err := b.c.doJSON(ctx, http.MethodPatch, idPath("books", id, "status"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
