package library

import "time"

// DashboardStats are the aggregate counters shown on the librarian dashboard.
// All values are computable from the four raw payloads.
type DashboardStats struct {
	TotalBooks           int
	AvailableBooks       int
	TotalUsers           int
	TotalCategories      int
	ActiveReservations   int
	ReturnedReservations int
	OverdueReservations  int
}

func NewDashboardStats(books []*Book, categories []*Category, users []*User, reservations []*Reservation, now time.Time) DashboardStats {
	active, returned := SplitReservations(reservations)
	return DashboardStats{
		TotalBooks:           len(books),
		AvailableBooks:       CountAvailable(books),
		TotalUsers:           len(users),
		TotalCategories:      len(categories),
		ActiveReservations:   len(active),
		ReturnedReservations: len(returned),
		OverdueReservations:  CountOverdue(reservations, now),
	}
}

type UserStats struct {
	Total       int
	Users       int
	Librarians  int
	Blacklisted int
}

func NewUserStats(users []*User) UserStats {
	s := UserStats{Total: len(users)}
	for _, u := range users {
		switch u.Role {
		case RoleUser:
			s.Users++
		case RoleLibrarian:
			s.Librarians++
		}
		if u.IsBlacklisted {
			s.Blacklisted++
		}
	}
	return s
}

type ReservationStats struct {
	Total    int
	Active   int
	Returned int
	Overdue  int
}

func NewReservationStats(rs []*Reservation, now time.Time) ReservationStats {
	active, returned := SplitReservations(rs)
	return ReservationStats{
		Total:    len(rs),
		Active:   len(active),
		Returned: len(returned),
		Overdue:  CountOverdue(rs, now),
	}
}
