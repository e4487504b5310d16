package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"library-portal/library"
	"library-portal/library/console"
	"library-portal/library/portal"
)

const dateFormat = "2006-01-02"

func printNotice(w io.Writer, a *app, n portal.Notice) {
	switch n.Kind {
	case portal.NoticeSuccess:
		fmt.Fprintln(w, n.Text)
	case portal.NoticeRedirected:
		printRedirect(w, a)
	default:
		fmt.Fprintf(w, "Error: %s\n", n.Text)
	}
}

// printLoadError reports a page that could not be shown.
func printLoadError(w io.Writer, a *app, err error) {
	if errors.Is(err, portal.ErrRedirected) {
		printRedirect(w, a)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// track runs fn and reports a session that a 401 ended while it ran.
func (a *app) track(w io.Writer, fn func()) {
	was := a.session.IsAuthenticated()
	fn()
	if was && !a.session.IsAuthenticated() && a.router.Current() == library.RouteLogin {
		fmt.Fprintln(w, "Session expired. Please login again.")
	}
}

func printRedirect(w io.Writer, a *app) {
	if a.router.Current() == library.RouteLogin {
		fmt.Fprintln(w, "Please login first.")
		return
	}
	fmt.Fprintln(w, "Librarian access required.")
}

func printSession(w io.Writer, a *app) {
	cur, ok := a.session.Current()
	if !ok {
		fmt.Fprintln(w, "Not logged in.")
		return
	}
	fmt.Fprintf(w, "Logged in as %s (%s)\n", cur.Email, cur.Role)
}

func printCatalog(w io.Writer, c *portal.Catalog) {
	if len(c.Books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-25s %-15s %-12s %s\n", "ID", "Title", "Author", "Category", "Language", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range c.Books {
		fmt.Fprintf(w, "%-5d %-30s %-25s %-15s %-12s %s\n",
			b.ID,
			console.Truncate(b.Title, 30),
			console.Truncate(b.Author, 25),
			console.Truncate(categoryName(b, c.Categories), 15),
			console.Truncate(b.Language, 12),
			b.Status)
	}
	fmt.Fprintf(w, "\nShowing %d of %d books | Available: %d\n", len(c.Books), len(c.All), c.Available)
	if len(c.Languages) > 0 {
		fmt.Fprintf(w, "Languages: %s\n", strings.Join(c.Languages, ", "))
	}
}

func categoryName(b *library.Book, cats []*library.Category) string {
	if b.Category != nil && b.Category.Name != "" {
		return b.Category.Name
	}
	if id, ok := b.CategoryRef(); ok {
		for _, c := range cats {
			if c.ID == id {
				return c.Name
			}
		}
	}
	return "-"
}

func printBook(w io.Writer, a *app, b *library.Book) {
	fmt.Fprintf(w, "%s\n", b.Title)
	fmt.Fprintf(w, "  Author:   %s\n", b.Author)
	if b.Genre != "" {
		fmt.Fprintf(w, "  Genre:    %s\n", b.Genre)
	}
	if b.Language != "" {
		fmt.Fprintf(w, "  Language: %s\n", b.Language)
	}
	if b.ISBN != "" {
		fmt.Fprintf(w, "  ISBN:     %s\n", b.ISBN)
	}
	if b.Category != nil {
		fmt.Fprintf(w, "  Category: %s\n", b.Category.Name)
	}
	fmt.Fprintf(w, "  Status:   %s\n", b.Status)
	if b.ImageURL != "" {
		fmt.Fprintf(w, "  Cover:    %s\n", a.portal.CoverURL(b.ImageURL))
	}
}

func printReservations(w io.Writer, a *app, rs []*library.Reservation, withUser bool) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No reservations.")
		return
	}
	if withUser {
		fmt.Fprintf(w, "%-5s %-30s %-25s %-12s %-12s %s\n", "ID", "Book", "User", "Reserved", "Due", "Status")
		fmt.Fprintln(w, strings.Repeat("-", 100))
	} else {
		fmt.Fprintf(w, "%-5s %-30s %-12s %-12s %-6s %s\n", "ID", "Book", "Reserved", "Due", "Days", "Status")
		fmt.Fprintln(w, strings.Repeat("-", 80))
	}
	for _, r := range rs {
		status := string(r.Status)
		if a.portal.IsOverdue(r) {
			status = "OVERDUE"
		}
		if withUser {
			fmt.Fprintf(w, "%-5d %-30s %-25s %-12s %-12s %s\n",
				r.ID,
				console.Truncate(r.BookTitle(), 30),
				console.Truncate(r.UserEmail(), 25),
				formatDate(r.ReservationDate),
				formatDate(r.DueDate),
				status)
			continue
		}
		fmt.Fprintf(w, "%-5d %-30s %-12s %-12s %-6d %s\n",
			r.ID,
			console.Truncate(r.BookTitle(), 30),
			formatDate(r.ReservationDate),
			formatDate(r.DueDate),
			r.LoanDays(),
			status)
	}
}

func printProfile(w io.Writer, a *app, p *portal.Profile) {
	fmt.Fprintf(w, "%s (%s)\n", p.Session.Email, p.Session.Role)
	fmt.Fprintf(w, "\nActive reservations (%d):\n", len(p.Active))
	printReservations(w, a, p.Active, false)
	fmt.Fprintf(w, "\nReading history (%d):\n", len(p.Returned))
	printReservations(w, a, p.Returned, false)
}

func printDashboard(w io.Writer, s library.DashboardStats) {
	fmt.Fprintln(w, "Library dashboard")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "%-28s %d\n", "Total books", s.TotalBooks)
	fmt.Fprintf(w, "%-28s %d\n", "Available books", s.AvailableBooks)
	fmt.Fprintf(w, "%-28s %d\n", "Total users", s.TotalUsers)
	fmt.Fprintf(w, "%-28s %d\n", "Categories", s.TotalCategories)
	fmt.Fprintf(w, "%-28s %d\n", "Active reservations", s.ActiveReservations)
	fmt.Fprintf(w, "%-28s %d\n", "Returned reservations", s.ReturnedReservations)
	fmt.Fprintf(w, "%-28s %d\n", "Overdue reservations", s.OverdueReservations)
}

func printAdminBooks(w io.Writer, l *portal.BookList) {
	if len(l.Books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-25s %-15s %-15s %s\n", "ID", "Title", "Author", "Category", "ISBN", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 105))
	for _, b := range l.Books {
		fmt.Fprintf(w, "%-5d %-30s %-25s %-15s %-15s %s\n",
			b.ID,
			console.Truncate(b.Title, 30),
			console.Truncate(b.Author, 25),
			console.Truncate(categoryName(b, l.Categories), 15),
			console.Truncate(b.ISBN, 15),
			b.Status)
	}
}

func printCategories(w io.Writer, cats []*library.Category) {
	if len(cats) == 0 {
		fmt.Fprintln(w, "No categories.")
		return
	}
	fmt.Fprintf(w, "%-5s %s\n", "ID", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, c := range cats {
		fmt.Fprintf(w, "%-5d %s\n", c.ID, c.Name)
	}
}

func printUsers(w io.Writer, l *portal.UserList) {
	fmt.Fprintf(w, "Total: %d | Users: %d | Librarians: %d | Blacklisted: %d\n\n",
		l.Stats.Total, l.Stats.Users, l.Stats.Librarians, l.Stats.Blacklisted)
	if len(l.Users) == 0 {
		fmt.Fprintln(w, "No users match.")
		return
	}
	fmt.Fprintf(w, "%-5s %-35s %-10s %-12s %s\n", "ID", "Email", "Role", "Status", "Joined")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, u := range l.Users {
		status := "Active"
		if u.IsBlacklisted {
			status = "Blacklisted"
		}
		fmt.Fprintf(w, "%-5d %-35s %-10s %-12s %s\n",
			u.ID, console.Truncate(u.Email, 35), u.Role, status, formatDate(u.CreatedAt))
	}
}

func printReservationList(w io.Writer, a *app, l *portal.ReservationList) {
	fmt.Fprintf(w, "Total: %d | Active: %d | Returned: %d | Overdue: %d\n\n",
		l.Stats.Total, l.Stats.Active, l.Stats.Returned, l.Stats.Overdue)
	printReservations(w, a, l.Reservations, true)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateFormat)
}
