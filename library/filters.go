package library

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filter values shared by the admin list views.
const (
	FilterAll         = "ALL"
	FilterActive      = "ACTIVE"
	FilterBlacklisted = "BLACKLISTED"
)

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// BookFilter narrows the catalog. Empty fields match everything.
type BookFilter struct {
	Query      string
	CategoryID string
	Language   string
}

// Match reports whether b passes the filter. Query is matched
// case-insensitively against title, author and genre.
func (f BookFilter) Match(b *Book) bool {
	if f.Query != "" && !containsFold(b.Title, f.Query) && !containsFold(b.Author, f.Query) && !containsFold(b.Genre, f.Query) {
		return false
	}
	if f.CategoryID != "" {
		id, ok := b.CategoryRef()
		if !ok || strconv.FormatInt(id, 10) != f.CategoryID {
			return false
		}
	}
	if f.Language != "" && b.Language != f.Language {
		return false
	}
	return true
}

// FilterBooks returns the books that pass f, preserving order.
func FilterBooks(books []*Book, f BookFilter) []*Book {
	out := make([]*Book, 0, len(books))
	for _, b := range books {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

// SearchBooks matches title or author only, as the admin book list does.
func SearchBooks(books []*Book, query string) []*Book {
	out := make([]*Book, 0, len(books))
	for _, b := range books {
		if containsFold(b.Title, query) || containsFold(b.Author, query) {
			out = append(out, b)
		}
	}
	return out
}

// Languages returns the distinct non-empty languages in books, sorted.
func Languages(books []*Book) []string {
	seen := make(map[string]struct{})
	var langs []string
	for _, b := range books {
		if b.Language == "" {
			continue
		}
		if _, ok := seen[b.Language]; ok {
			continue
		}
		seen[b.Language] = struct{}{}
		langs = append(langs, b.Language)
	}
	sort.Strings(langs)
	return langs
}

// CountAvailable counts books whose status is AVAILABLE.
func CountAvailable(books []*Book) int {
	n := 0
	for _, b := range books {
		if b.Available() {
			n++
		}
	}
	return n
}

// UserFilter narrows the admin user list.
type UserFilter struct {
	Query  string
	Role   string // ALL, USER or LIBRARIAN
	Status string // ALL, ACTIVE or BLACKLISTED
}

func (f UserFilter) Match(u *User) bool {
	if f.Query != "" && !containsFold(u.Email, f.Query) {
		return false
	}
	if f.Role != "" && f.Role != FilterAll && string(u.Role) != f.Role {
		return false
	}
	switch f.Status {
	case FilterActive:
		return !u.IsBlacklisted
	case FilterBlacklisted:
		return u.IsBlacklisted
	}
	return true
}

func FilterUsers(users []*User, f UserFilter) []*User {
	out := make([]*User, 0, len(users))
	for _, u := range users {
		if f.Match(u) {
			out = append(out, u)
		}
	}
	return out
}

// ReservationFilter narrows the admin reservation list.
type ReservationFilter struct {
	Query  string // book title or user email
	Status string // ALL, ACTIVE or RETURNED
}

func (f ReservationFilter) Match(r *Reservation) bool {
	if f.Query != "" && !containsFold(r.BookTitle(), f.Query) && !containsFold(r.UserEmail(), f.Query) {
		return false
	}
	if f.Status != "" && f.Status != FilterAll && string(r.Status) != f.Status {
		return false
	}
	return true
}

func FilterReservations(rs []*Reservation, f ReservationFilter) []*Reservation {
	out := make([]*Reservation, 0, len(rs))
	for _, r := range rs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SplitReservations separates active from returned reservations.
func SplitReservations(rs []*Reservation) (active, returned []*Reservation) {
	for _, r := range rs {
		switch r.Status {
		case ReservationActive:
			active = append(active, r)
		case ReservationReturned:
			returned = append(returned, r)
		}
	}
	return active, returned
}

// CountOverdue counts reservations that are overdue at now.
func CountOverdue(rs []*Reservation, now time.Time) int {
	n := 0
	for _, r := range rs {
		if r.IsOverdue(now) {
			n++
		}
	}
	return n
}
