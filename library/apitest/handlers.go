package apitest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"library-portal/library"
)

func withAccount(ctx context.Context, a *account) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func accountFrom(ctx context.Context) *account {
	a, _ := ctx.Value(ctxKey{}).(*account)
	return a
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request: "+err.Error())
		return false
	}
	return true
}

func sortedValues[T any](m map[int64]*T) []*T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.Email]
	if !ok || a.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   b.token(a.user.Email),
		"role":    a.user.Role,
		"email":   a.user.Email,
		"message": "Login successful",
	})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string       `json:"email"`
		Password string       `json:"password"`
		Role     library.Role `json:"role"`
	}
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Email already registered"})
		return
	}
	b.addAccount(req.Email, req.Password, req.Role)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

type bookRequest struct {
	Title      string             `json:"title"`
	Author     string             `json:"author"`
	Genre      string             `json:"genre"`
	Language   string             `json:"language"`
	ISBN       string             `json:"isbn"`
	CategoryID *int64             `json:"categoryId"`
	ImageURL   *string            `json:"imageUrl"`
	Status     library.BookStatus `json:"status"`
}

func (b *Backend) applyBook(book *library.Book, req bookRequest) {
	book.Title, book.Author, book.Genre = req.Title, req.Author, req.Genre
	book.Language, book.ISBN = req.Language, req.ISBN
	book.CategoryID, book.Category = req.CategoryID, nil
	if req.CategoryID != nil {
		book.Category = b.categories[*req.CategoryID]
	}
	book.ImageURL = ""
	if req.ImageURL != nil {
		book.ImageURL = *req.ImageURL
	}
	if req.Status != "" {
		book.Status = req.Status
	}
}

func (b *Backend) handleListBooks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, sortedValues(b.books))
}

func (b *Backend) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	book, ok := b.books[id]
	if !ok {
		notFound(w, "Book", id)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (b *Backend) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	book := &library.Book{ID: b.id(), Status: library.BookAvailable}
	b.applyBook(book, req)
	b.books[book.ID] = book
	writeJSON(w, http.StatusCreated, book)
}

func (b *Backend) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	book, ok := b.books[id]
	if !ok {
		notFound(w, "Book", id)
		return
	}
	b.applyBook(book, req)
	writeJSON(w, http.StatusOK, book)
}

func (b *Backend) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.books[id]; !ok {
		notFound(w, "Book", id)
		return
	}
	delete(b.books, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleBookStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	status := library.BookStatus(r.URL.Query().Get("status"))
	if status != library.BookAvailable && status != library.BookReserved {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	book, ok := b.books[id]
	if !ok {
		notFound(w, "Book", id)
		return
	}
	book.Status = status
	writeJSON(w, http.StatusOK, book)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (b *Backend) handleListCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, sortedValues(b.categories))
}

func (b *Backend) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.categories[id]
	if !ok {
		notFound(w, "Category", id)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req library.Category
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Category name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.categories {
		if c.Name == req.Name {
			writeError(w, http.StatusBadRequest, "Category already exists")
			return
		}
	}
	c := &library.Category{ID: b.id(), Name: req.Name}
	b.categories[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

func (b *Backend) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var req library.Category
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.categories[id]
	if !ok {
		notFound(w, "Category", id)
		return
	}
	c.Name = req.Name
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.categories[id]; !ok {
		notFound(w, "Category", id)
		return
	}
	for _, book := range b.books {
		if ref, ok := book.CategoryRef(); ok && ref == id {
			writeError(w, http.StatusBadRequest, "Category has books")
			return
		}
	}
	delete(b.categories, id)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (b *Backend) userByID(id int64) (*account, bool) {
	for _, a := range b.accounts {
		if a.user.ID == id {
			return a, true
		}
	}
	return nil, false
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	users := make(map[int64]*library.User, len(b.accounts))
	for _, a := range b.accounts {
		users[a.user.ID] = a.user
	}
	writeJSON(w, http.StatusOK, sortedValues(users))
}

func (b *Backend) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.userByID(id)
	if !ok {
		notFound(w, "User", id)
		return
	}
	writeJSON(w, http.StatusOK, a.user)
}

func (b *Backend) handleBlacklist(blacklisted bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		a, ok := b.userByID(id)
		if !ok {
			notFound(w, "User", id)
			return
		}
		a.user.IsBlacklisted = blacklisted
		writeJSON(w, http.StatusOK, a.user)
	}
}

func (b *Backend) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.userByID(id)
	if !ok {
		notFound(w, "User", id)
		return
	}
	delete(b.accounts, a.user.Email)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

func (b *Backend) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID *int64 `json:"bookId"`
		Days   int    `json:"days"`
	}
	if !decode(w, r, &req) {
		return
	}
	a := accountFrom(r.Context())

	b.mu.Lock()
	defer b.mu.Unlock()
	if a.user.IsBlacklisted {
		writeError(w, http.StatusForbidden, "User is blacklisted")
		return
	}
	if req.BookID == nil || req.Days <= 0 {
		writeError(w, http.StatusBadRequest, "bookId and days are required")
		return
	}
	book, ok := b.books[*req.BookID]
	if !ok {
		notFound(w, "Book", *req.BookID)
		return
	}
	if !book.Available() {
		writeError(w, http.StatusBadRequest, "Book is not available")
		return
	}
	now := b.Now().UTC()
	book.Status = library.BookReserved
	res := &library.Reservation{
		ID:              b.id(),
		Book:            book,
		User:            a.user,
		ReservationDate: now,
		DueDate:         now.Add(time.Duration(req.Days) * 24 * time.Hour),
		Status:          library.ReservationActive,
	}
	b.reservations[res.ID] = res
	writeJSON(w, http.StatusCreated, res)
}

func (b *Backend) handleListReservations(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, sortedValues(b.reservations))
}

func (b *Backend) handleMyReservations(w http.ResponseWriter, r *http.Request) {
	a := accountFrom(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()
	mine := make(map[int64]*library.Reservation)
	for id, res := range b.reservations {
		if res.User != nil && res.User.ID == a.user.ID {
			mine[id] = res
		}
	}
	writeJSON(w, http.StatusOK, sortedValues(mine))
}

// reservationFor returns the reservation if a may see it.
func (b *Backend) reservationFor(w http.ResponseWriter, r *http.Request) (*library.Reservation, bool) {
	id, _ := pathID(r)
	res, ok := b.reservations[id]
	if !ok {
		notFound(w, "Reservation", id)
		return nil, false
	}
	a := accountFrom(r.Context())
	if a.user.Role != library.RoleLibrarian && (res.User == nil || res.User.ID != a.user.ID) {
		writeError(w, http.StatusForbidden, "You can only access your own reservations")
		return nil, false
	}
	return res, true
}

func (b *Backend) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if res, ok := b.reservationFor(w, r); ok {
		writeJSON(w, http.StatusOK, res)
	}
}

func (b *Backend) handleReturnReservation(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, ok := b.reservationFor(w, r)
	if !ok {
		return
	}
	if res.Status == library.ReservationReturned {
		writeError(w, http.StatusBadRequest, "Reservation already returned")
		return
	}
	res.Status = library.ReservationReturned
	if res.Book != nil {
		res.Book.Status = library.BookAvailable
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	res, ok := b.reservations[id]
	if !ok {
		notFound(w, "Reservation", id)
		return
	}
	if res.Status == library.ReservationActive && res.Book != nil {
		res.Book.Status = library.BookAvailable
	}
	delete(b.reservations, id)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, "/uploads/"+filepath.Base(header.Filename))
}
