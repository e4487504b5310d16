package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/portal"
)

// Actions shared by the subcommands and the interactive prompt. Each one
// writes its outcome to w and never fails: errors are part of the output.

func (a *app) login(ctx context.Context, w io.Writer, email, password string) {
	res := a.session.Login(ctx, email, password)
	if !res.Success {
		fmt.Fprintf(w, "Error: %s\n", res.Message)
		return
	}
	fmt.Fprintln(w, res.Message)
	printSession(w, a)
}

func (a *app) signup(ctx context.Context, w io.Writer, name, email, password string) {
	res := a.session.Signup(ctx, name, email, password)
	if !res.Success {
		fmt.Fprintf(w, "Error: %s\n", res.Message)
		return
	}
	fmt.Fprintln(w, res.Message)
}

func (a *app) logout(w io.Writer) {
	a.session.Logout()
	fmt.Fprintln(w, "Logged out.")
}

func (a *app) catalog(ctx context.Context, w io.Writer, f library.BookFilter) {
	a.track(w, func() {
		c, err := a.portal.Catalog(ctx, f)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printCatalog(w, c)
	})
}

func (a *app) bookDetails(ctx context.Context, w io.Writer, id int64) {
	a.track(w, func() {
		b, err := a.portal.BookDetails(ctx, id)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printBook(w, a, b)
	})
}

func (a *app) reserve(ctx context.Context, w io.Writer, bookID int64, days int) {
	a.track(w, func() {
		n, c := a.portal.Reserve(ctx, bookID, days)
		printNotice(w, a, n)
		if c != nil {
			fmt.Fprintln(w)
			printCatalog(w, c)
		}
	})
}

func (a *app) profile(ctx context.Context, w io.Writer) {
	a.track(w, func() {
		p, err := a.portal.Profile(ctx)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printProfile(w, a, p)
	})
}

func (a *app) notice(w io.Writer, fn func() portal.Notice) {
	a.track(w, func() { printNotice(w, a, fn()) })
}

func (a *app) dashboard(ctx context.Context, w io.Writer) {
	a.track(w, func() {
		s, err := a.portal.Dashboard(ctx)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printDashboard(w, s)
	})
}

func (a *app) adminBooks(ctx context.Context, w io.Writer, query string) {
	a.track(w, func() {
		l, err := a.portal.AdminBooks(ctx, query)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printAdminBooks(w, l)
	})
}

// saveBook adds the book when id is 0 and edits it otherwise. coverPath is
// optional.
func (a *app) saveBook(ctx context.Context, w io.Writer, id int64, form api.BookForm, coverPath string) {
	var cover *portal.Cover
	if coverPath != "" {
		f, err := os.Open(filepath.Clean(coverPath))
		if err != nil {
			fmt.Fprintf(w, "File error: %v\n", err)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			fmt.Fprintf(w, "File error: %v\n", err)
			return
		}
		cover = &portal.Cover{Name: filepath.Base(coverPath), Size: info.Size(), Body: f}
	}
	a.notice(w, func() portal.Notice {
		if id == 0 {
			return a.portal.AddBook(ctx, form, cover)
		}
		return a.portal.EditBook(ctx, id, form, cover)
	})
}

func (a *app) categories(ctx context.Context, w io.Writer) {
	a.track(w, func() {
		cats, err := a.portal.Categories(ctx)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printCategories(w, cats)
	})
}

func (a *app) users(ctx context.Context, w io.Writer, f library.UserFilter) {
	a.track(w, func() {
		l, err := a.portal.Users(ctx, f)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printUsers(w, l)
	})
}

func (a *app) reservations(ctx context.Context, w io.Writer, f library.ReservationFilter) {
	a.track(w, func() {
		l, err := a.portal.Reservations(ctx, f)
		if err != nil {
			printLoadError(w, a, err)
			return
		}
		printReservationList(w, a, l)
	})
}
