package portal

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"library-portal/library"
	"library-portal/library/api"
)

// ReservationDays are the loan lengths a reader can choose from.
var ReservationDays = []int{7, 14, 21}

// Catalog is the book browsing page.
type Catalog struct {
	All        []*library.Book
	Books      []*library.Book // after filtering
	Categories []*library.Category
	Languages  []string
	Available  int // available among Books
}

// Catalog loads books and categories together and applies f.
func (p *Portal) Catalog(ctx context.Context, f library.BookFilter) (*Catalog, error) {
	if err := p.enter(library.RouteBooks); err != nil {
		return nil, err
	}
	return p.loadCatalog(ctx, f)
}

func (p *Portal) loadCatalog(ctx context.Context, f library.BookFilter) (*Catalog, error) {
	books, categories, err := p.booksAndCategories(ctx)
	if err != nil {
		return nil, loadFailed(err, "Failed to load books. Please refresh the page.")
	}
	filtered := library.FilterBooks(books, f)
	return &Catalog{
		All:        books,
		Books:      filtered,
		Categories: categories,
		Languages:  library.Languages(books),
		Available:  library.CountAvailable(filtered),
	}, nil
}

func (p *Portal) booksAndCategories(ctx context.Context) ([]*library.Book, []*library.Category, error) {
	var (
		g          errgroup.Group
		books      []*library.Book
		categories []*library.Category
	)
	g.Go(func() error {
		var err error
		books, err = p.client.Books.List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = p.client.Categories.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return books, categories, nil
}

// BookDetails loads a single book.
func (p *Portal) BookDetails(ctx context.Context, id int64) (*library.Book, error) {
	if err := p.enter(library.RouteBookDetails); err != nil {
		return nil, err
	}
	book, err := p.client.Books.Get(ctx, id)
	if err != nil {
		return nil, loadFailed(err, "Failed to load book details.")
	}
	return book, nil
}

// Reserve borrows bookID for days and reloads the catalog on success.
func (p *Portal) Reserve(ctx context.Context, bookID int64, days int) (Notice, *Catalog) {
	if err := p.enter(library.RouteBooks); err != nil {
		return failure(err, ""), nil
	}
	if !slices.Contains(ReservationDays, days) {
		return Notice{Kind: NoticeError, Text: fmt.Sprintf("Reservations last %v days.", ReservationDays)}, nil
	}

	res, err := p.client.Reservations.Create(ctx, api.ReservationForm{
		BookID: strconv.FormatInt(bookID, 10),
		Days:   days,
	})
	if err != nil {
		return failure(err, "Failed to reserve book. Please try again."), nil
	}

	title := res.BookTitle()
	if title == "" {
		title = fmt.Sprintf("book #%d", bookID)
	}
	notice := success(fmt.Sprintf("Successfully reserved %q for %d days!", title, days))

	catalog, err := p.loadCatalog(ctx, library.BookFilter{})
	if err != nil {
		return notice, nil
	}
	return notice, catalog
}

// Profile is the reader's own account page.
type Profile struct {
	Session  library.Session
	Active   []*library.Reservation
	Returned []*library.Reservation
}

func (p *Portal) Profile(ctx context.Context) (*Profile, error) {
	if err := p.enter(library.RouteProfile); err != nil {
		return nil, err
	}
	cur, _ := p.session.Current()
	mine, err := p.client.Reservations.Mine(ctx)
	if err != nil {
		return nil, loadFailed(err, "Failed to load your reservations")
	}
	active, returned := library.SplitReservations(mine)
	return &Profile{Session: cur, Active: active, Returned: returned}, nil
}

// ReturnBook returns one of the reader's own reservations.
func (p *Portal) ReturnBook(ctx context.Context, reservationID int64) Notice {
	if err := p.enter(library.RouteProfile); err != nil {
		return failure(err, "")
	}
	res, err := p.client.Reservations.Get(ctx, reservationID)
	if err != nil {
		return failure(err, "Failed to return book. Please try again.")
	}
	if err := p.client.Reservations.Return(ctx, reservationID); err != nil {
		return failure(err, "Failed to return book. Please try again.")
	}
	return success(fmt.Sprintf("Successfully returned %q!", res.BookTitle()))
}
