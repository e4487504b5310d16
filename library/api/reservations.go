package api

import (
	"context"
	"net/http"

	"library-portal/library"
)

type ReservationsAPI struct{ c *Client }

// ReservationForm requests a loan. BookID is coerced to a number before it
// is sent.
type ReservationForm struct {
	BookID string
	Days   int
}

type reservationPayload struct {
	BookID *int64 `json:"bookId"`
	Days   int    `json:"days"`
}

func (r *ReservationsAPI) Create(ctx context.Context, form ReservationForm) (*library.Reservation, error) {
	var out library.Reservation
	body := reservationPayload{BookID: coerceID(form.BookID), Days: form.Days}
	if err := r.c.doJSON(ctx, http.MethodPost, "/reservations", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every reservation (librarian only on the backend).
func (r *ReservationsAPI) List(ctx context.Context) ([]*library.Reservation, error) {
	return r.list(ctx, "/reservations")
}

// Mine returns the reservations of the logged-in account.
func (r *ReservationsAPI) Mine(ctx context.Context) ([]*library.Reservation, error) {
	return r.list(ctx, "/reservations/my")
}

func (r *ReservationsAPI) list(ctx context.Context, path string) ([]*library.Reservation, error) {
	var out []*library.Reservation
	if err := r.c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReservationsAPI) Get(ctx context.Context, id int64) (*library.Reservation, error) {
	var out library.Reservation
	if err := r.c.doJSON(ctx, http.MethodGet, idPath("reservations", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Return marks the reservation as returned.
func (r *ReservationsAPI) Return(ctx context.Context, id int64) error {
	return r.c.doJSON(ctx, http.MethodPatch, idPath("reservations", id, "return"), nil, nil, nil)
}

func (r *ReservationsAPI) Delete(ctx context.Context, id int64) error {
	return r.c.doJSON(ctx, http.MethodDelete, idPath("reservations", id), nil, nil, nil)
}
