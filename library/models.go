package library

import "time"

// Role is the authorization role the backend assigns to an account.
type Role string

const (
	RoleUser      Role = "USER"
	RoleLibrarian Role = "LIBRARIAN"
)

// BookStatus is the availability state of a book as reported by the backend.
type BookStatus string

const (
	BookAvailable BookStatus = "AVAILABLE"
	BookReserved  BookStatus = "RESERVED"
)

// ReservationStatus is the stored state of a reservation. Overdue is not a
// stored status; see Reservation.IsOverdue.
type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "ACTIVE"
	ReservationReturned ReservationStatus = "RETURNED"
)

// Session is the authenticated identity held by the client.
type Session struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Book represents a catalog entry owned by the backend.
type Book struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Genre      string     `json:"genre,omitempty"`
	Language   string     `json:"language,omitempty"`
	ISBN       string     `json:"isbn,omitempty"`
	CategoryID *int64     `json:"categoryId,omitempty"`
	Category   *Category  `json:"category,omitempty"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	Status     BookStatus `json:"status"`
}

// Available reports whether the book can currently be reserved.
func (b *Book) Available() bool { return b.Status == BookAvailable }

// CategoryRef returns the id of the book's category, preferring the nested
// category object over the flat categoryId field.
func (b *Book) CategoryRef() (int64, bool) {
	if b.Category != nil {
		return b.Category.ID, true
	}
	if b.CategoryID != nil {
		return *b.CategoryID, true
	}
	return 0, false
}

// Category groups books.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the administrative view of an account.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	IsBlacklisted bool      `json:"isBlacklisted"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Reservation is a loan of a book to a user.
type Reservation struct {
	ID              int64             `json:"id"`
	Book            *Book             `json:"book,omitempty"`
	User            *User             `json:"user,omitempty"`
	ReservationDate time.Time         `json:"reservationDate"`
	DueDate         time.Time         `json:"dueDate"`
	Status          ReservationStatus `json:"status"`
}

// IsOverdue reports whether the reservation is still active past its due date.
func (r *Reservation) IsOverdue(now time.Time) bool {
	return r.Status == ReservationActive && r.DueDate.Before(now)
}

// LoanDays is the length of the loan in whole days, rounded up.
func (r *Reservation) LoanDays() int {
	d := r.DueDate.Sub(r.ReservationDate)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// BookTitle is the title of the reserved book, or "" when the backend omitted it.
func (r *Reservation) BookTitle() string {
	if r.Book == nil {
		return ""
	}
	return r.Book.Title
}

// UserEmail is the email of the reserving user, or "" when the backend omitted it.
func (r *Reservation) UserEmail() string {
	if r.User == nil {
		return ""
	}
	return r.User.Email
}
