package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/console"
	"library-portal/library/portal"
)

// prompt prints label and returns the next trimmed line, or "" at EOF.
func prompt(sc *bufio.Scanner, w io.Writer, label string) string {
	fmt.Fprint(w, label)
	if !sc.Scan() {
		return ""
	}
	return strings.TrimSpace(sc.Text())
}

// promptID reads an ID, reporting bad input. ok is false when nothing usable was entered.
func promptID(sc *bufio.Scanner, w io.Writer, what string) (int64, bool) {
	s := prompt(sc, w, fmt.Sprintf("%s ID: ", what))
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Fprintf(w, "Invalid %s ID: %s\n", strings.ToLower(what), s)
		return 0, false
	}
	return id, true
}

func printWelcome(w io.Writer, a *app) {
	fmt.Fprintln(w, "Welcome to the Library Portal!")
	printSession(w, a)
	fmt.Fprintln(w, "Available commands:")
	fmt.Fprintln(w, "  Account: login, signup, logout, whoami")
	fmt.Fprintln(w, "  Books: list books, search book, book details, reserve")
	fmt.Fprintln(w, "  Profile: profile, return")
	if a.session.IsLibrarian() {
		fmt.Fprintln(w, "  Admin: dashboard, admin books, add book, edit book, delete book, set status")
		fmt.Fprintln(w, "         list categories, add category, rename category, delete category")
		fmt.Fprintln(w, "         list users, toggle blacklist, delete user")
		fmt.Fprintln(w, "         all reservations, mark returned, delete reservation")
	}
	fmt.Fprintln(w, "  System: help, exit")
}

func runREPL(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	r := &replIO{in: in, sc: scanner, out: out}

	printWelcome(out, a)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "":
		case "login":
			handleLogin(ctx, r, a)
		case "signup":
			handleSignup(ctx, r, a)
		case "logout":
			a.logout(out)
		case "whoami":
			printSession(out, a)
		case "list books":
			a.catalog(ctx, out, library.BookFilter{})
		case "search book":
			handleSearchBooks(ctx, scanner, out, a)
		case "book details":
			if id, ok := promptID(scanner, out, "Book"); ok {
				a.bookDetails(ctx, out, id)
			}
		case "reserve":
			handleReserve(ctx, scanner, out, a)
		case "profile":
			a.profile(ctx, out)
		case "return":
			if id, ok := promptID(scanner, out, "Reservation"); ok {
				a.notice(out, func() portal.Notice { return a.portal.ReturnBook(ctx, id) })
			}
		case "dashboard":
			a.dashboard(ctx, out)
		case "admin books":
			a.adminBooks(ctx, out, prompt(scanner, out, "Search (optional): "))
		case "add book":
			handleSaveBook(ctx, scanner, out, a, 0)
		case "edit book":
			if id, ok := promptID(scanner, out, "Book"); ok {
				handleSaveBook(ctx, scanner, out, a, id)
			}
		case "delete book":
			if id, ok := promptID(scanner, out, "Book"); ok {
				a.notice(out, func() portal.Notice { return a.portal.DeleteBook(ctx, id) })
			}
		case "set status":
			handleSetStatus(ctx, scanner, out, a)
		case "list categories":
			a.categories(ctx, out)
		case "add category":
			name := prompt(scanner, out, "Name: ")
			a.notice(out, func() portal.Notice { return a.portal.AddCategory(ctx, name) })
		case "rename category":
			if id, ok := promptID(scanner, out, "Category"); ok {
				name := prompt(scanner, out, "New name: ")
				a.notice(out, func() portal.Notice { return a.portal.EditCategory(ctx, id, name) })
			}
		case "delete category":
			if id, ok := promptID(scanner, out, "Category"); ok {
				a.notice(out, func() portal.Notice { return a.portal.DeleteCategory(ctx, id) })
			}
		case "list users":
			handleListUsers(ctx, scanner, out, a)
		case "toggle blacklist":
			if id, ok := promptID(scanner, out, "User"); ok {
				a.notice(out, func() portal.Notice { return a.portal.ToggleBlacklist(ctx, id) })
			}
		case "delete user":
			if id, ok := promptID(scanner, out, "User"); ok {
				a.notice(out, func() portal.Notice { return a.portal.DeleteUser(ctx, id) })
			}
		case "all reservations":
			handleListReservations(ctx, scanner, out, a)
		case "mark returned":
			if id, ok := promptID(scanner, out, "Reservation"); ok {
				a.notice(out, func() portal.Notice { return a.portal.MarkReturned(ctx, id) })
			}
		case "delete reservation":
			if id, ok := promptID(scanner, out, "Reservation"); ok {
				a.notice(out, func() portal.Notice { return a.portal.DeleteReservation(ctx, id) })
			}
		case "help":
			printWelcome(out, a)
		case "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' to list the available commands.")
		}
	}
}

// replIO is the prompt's input and output.
type replIO struct {
	in  io.Reader
	sc  *bufio.Scanner
	out io.Writer
}

func handleLogin(ctx context.Context, r *replIO, a *app) {
	sc, w := r.sc, r.out
	email := prompt(sc, w, "Email: ")
	if email == "" {
		fmt.Fprintln(w, "Error: Email cannot be empty")
		return
	}
	password, err := console.ReadPassword(r.in, sc, w, "Password: ")
	if err != nil {
		fmt.Fprintf(w, "Error reading password: %v\n", err)
		return
	}
	a.login(ctx, w, email, password)
}

func handleSignup(ctx context.Context, r *replIO, a *app) {
	sc, w := r.sc, r.out
	name := prompt(sc, w, "Name: ")
	email := prompt(sc, w, "Email: ")
	password, err := console.ReadPassword(r.in, sc, w, fmt.Sprintf("Enter password for %s: ", email))
	if err != nil {
		fmt.Fprintf(w, "Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Fprintln(w, "Error: Password cannot be empty")
		return
	}
	confirm, err := console.ReadPassword(r.in, sc, w, "Confirm password: ")
	if err != nil {
		fmt.Fprintf(w, "Error reading password: %v\n", err)
		return
	}
	if password != confirm {
		fmt.Fprintln(w, "Error: Passwords do not match")
		return
	}
	a.signup(ctx, w, name, email, password)
}

func handleSearchBooks(ctx context.Context, sc *bufio.Scanner, w io.Writer, a *app) {
	var f library.BookFilter
	f.Query = prompt(sc, w, "Query (title, author or genre): ")
	f.CategoryID = prompt(sc, w, "Category ID (or press Enter for all): ")
	f.Language = prompt(sc, w, "Language (or press Enter for all): ")
	a.catalog(ctx, w, f)
}

func handleReserve(ctx context.Context, sc *bufio.Scanner, w io.Writer, a *app) {
	bookID, ok := promptID(sc, w, "Book")
	if !ok {
		return
	}
	s := prompt(sc, w, fmt.Sprintf("Days %v: ", portal.ReservationDays))
	days, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(w, "Invalid number of days: %s\n", s)
		return
	}
	a.reserve(ctx, w, bookID, days)
}

func handleSaveBook(ctx context.Context, sc *bufio.Scanner, w io.Writer, a *app, id int64) {
	form := api.BookForm{
		Title:      prompt(sc, w, "Title: "),
		Author:     prompt(sc, w, "Author: "),
		Genre:      prompt(sc, w, "Genre: "),
		Language:   prompt(sc, w, "Language: "),
		ISBN:       prompt(sc, w, "ISBN: "),
		CategoryID: prompt(sc, w, "Category ID: "),
		Status:     library.BookStatus(strings.ToUpper(prompt(sc, w, "Status [AVAILABLE]: "))),
	}
	cover := prompt(sc, w, "Path to cover image (optional): ")
	if cover == "" {
		form.ImageURL = prompt(sc, w, "Existing image URL (optional): ")
	}
	a.saveBook(ctx, w, id, form, cover)
}

func handleSetStatus(ctx context.Context, sc *bufio.Scanner, w io.Writer, a *app) {
	id, ok := promptID(sc, w, "Book")
	if !ok {
		return
	}
	status := library.BookStatus(strings.ToUpper(prompt(sc, w, "Status (AVAILABLE or RESERVED): ")))
	a.notice(w, func() portal.Notice { return a.portal.SetBookStatus(ctx, id, status) })
}

func handleListUsers(ctx context.Context, sc *bufio.Scanner, w io.Writer, a *app) {
	f := library.UserFilter{
		Query:  prompt(sc, w, "Email contains (optional): "),
		Role:   strings.ToUpper(prompt(sc, w, "Role (ALL, USER, LIBRARIAN): ")),
		Status: strings.ToUpper(prompt(sc, w, "Status (ALL, ACTIVE, BLACKLISTED): ")),
	}
	a.users(ctx, w, f)
}

func handleListReservations(ctx context.Context, sc *bufio.Scanner, w io.Writer, a *app) {
	f := library.ReservationFilter{
		Query:  prompt(sc, w, "Book title or email contains (optional): "),
		Status: strings.ToUpper(prompt(sc, w, "Status (ALL, ACTIVE, RETURNED): ")),
	}
	a.reservations(ctx, w, f)
}
