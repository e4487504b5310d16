package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDashboardStats(t *testing.T) {
	books := sampleBooks()
	categories := []*Category{{ID: 1, Name: "Fiction"}, {ID: 2, Name: "Science"}}
	users := []*User{{ID: 1}, {ID: 2}, {ID: 3}}
	rs := []*Reservation{
		{Status: ReservationActive, DueDate: now.Add(-time.Hour)},
		{Status: ReservationActive, DueDate: now.Add(time.Hour)},
		{Status: ReservationReturned, DueDate: now.Add(-time.Hour)},
	}

	assert.Equal(t, DashboardStats{
		TotalBooks:           4,
		AvailableBooks:       3,
		TotalUsers:           3,
		TotalCategories:      2,
		ActiveReservations:   2,
		ReturnedReservations: 1,
		OverdueReservations:  1,
	}, NewDashboardStats(books, categories, users, rs, now))

	assert.Equal(t, DashboardStats{}, NewDashboardStats(nil, nil, nil, nil, now))
}

func TestNewUserStats(t *testing.T) {
	users := []*User{
		{Role: RoleLibrarian},
		{Role: RoleUser},
		{Role: RoleUser, IsBlacklisted: true},
	}
	assert.Equal(t, UserStats{Total: 3, Users: 2, Librarians: 1, Blacklisted: 1}, NewUserStats(users))
}

func TestNewReservationStats(t *testing.T) {
	rs := []*Reservation{
		{Status: ReservationActive, DueDate: now.Add(-time.Minute)},
		{Status: ReservationReturned, DueDate: now.Add(-time.Minute)},
		{Status: ReservationReturned, DueDate: now.Add(time.Minute)},
	}
	assert.Equal(t, ReservationStats{Total: 3, Active: 1, Returned: 2, Overdue: 1}, NewReservationStats(rs, now))
}
