package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/logger"
)

// MaxCoverSize is the largest cover image accepted for upload.
const MaxCoverSize = 5 << 20

var (
	ErrCoverNotImage = errors.New("Please select a valid image file")
	ErrCoverTooLarge = errors.New("Image size should be less than 5MB")
)

// Cover is an image file to upload alongside a book form.
type Cover struct {
	Name string
	Size int64
	Body io.Reader
}

// Validate checks the file type by extension and the size limit.
func (c *Cover) Validate() error {
	if !strings.HasPrefix(mime.TypeByExtension(strings.ToLower(filepath.Ext(c.Name))), "image/") {
		return ErrCoverNotImage
	}
	if c.Size > MaxCoverSize {
		return ErrCoverTooLarge
	}
	return nil
}

// Dashboard fetches the four collections together and derives the counters.
func (p *Portal) Dashboard(ctx context.Context) (library.DashboardStats, error) {
	if err := p.enterAdmin(library.RouteAdminDashboard); err != nil {
		return library.DashboardStats{}, err
	}

	var (
		g            errgroup.Group
		books        []*library.Book
		categories   []*library.Category
		users        []*library.User
		reservations []*library.Reservation
	)
	g.Go(func() (err error) {
		books, err = p.client.Books.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = p.client.Categories.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = p.client.Users.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		reservations, err = p.client.Reservations.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return library.DashboardStats{}, loadFailed(err, "Failed to load dashboard data")
	}
	return library.NewDashboardStats(books, categories, users, reservations, p.now()), nil
}

// BookList is the admin book table.
type BookList struct {
	Books      []*library.Book
	Categories []*library.Category
}

// AdminBooks lists books matching query by title or author.
func (p *Portal) AdminBooks(ctx context.Context, query string) (*BookList, error) {
	if err := p.enterAdmin(library.RouteAdminBooks); err != nil {
		return nil, err
	}
	books, categories, err := p.booksAndCategories(ctx)
	if err != nil {
		return nil, loadFailed(err, "Failed to load data. Please refresh the page.")
	}
	return &BookList{Books: library.SearchBooks(books, query), Categories: categories}, nil
}

// AddBook uploads cover, if any, and then creates the book.
func (p *Portal) AddBook(ctx context.Context, form api.BookForm, cover *Cover) Notice {
	if err := p.enterAdmin(library.RouteAdminBooks); err != nil {
		return failure(err, "")
	}
	form, err := p.withCover(ctx, form, cover)
	if err != nil {
		return coverFailure(err)
	}
	if _, err := p.client.Books.Create(ctx, form); err != nil {
		return failure(err, "Failed to add book. Please try again.")
	}
	return success(fmt.Sprintf("Book %q added successfully!", form.Title))
}

// EditBook uploads cover, if any, and then replaces the book.
func (p *Portal) EditBook(ctx context.Context, id int64, form api.BookForm, cover *Cover) Notice {
	if err := p.enterAdmin(library.RouteAdminBooks); err != nil {
		return failure(err, "")
	}
	form, err := p.withCover(ctx, form, cover)
	if err != nil {
		return coverFailure(err)
	}
	if _, err := p.client.Books.Update(ctx, id, form); err != nil {
		return failure(err, "Failed to update book. Please try again.")
	}
	return success(fmt.Sprintf("Book %q updated successfully!", form.Title))
}

func coverFailure(err error) Notice {
	if errors.Is(err, ErrCoverNotImage) || errors.Is(err, ErrCoverTooLarge) {
		return Notice{Kind: NoticeError, Text: err.Error()}
	}
	return failure(err, "Failed to upload image")
}

func (p *Portal) withCover(ctx context.Context, form api.BookForm, cover *Cover) (api.BookForm, error) {
	if cover == nil {
		return form, nil
	}
	if err := cover.Validate(); err != nil {
		return form, err
	}
	url, err := p.client.Files.Upload(ctx, cover.Name, cover.Body)
	if err != nil {
		logger.Log.WithError(err).WithField("file", cover.Name).Warn("cover upload failed")
		return form, err
	}
	form.ImageURL = url
	return form, nil
}

func (p *Portal) DeleteBook(ctx context.Context, id int64) Notice {
	if err := p.enterAdmin(library.RouteAdminBooks); err != nil {
		return failure(err, "")
	}
	book, err := p.client.Books.Get(ctx, id)
	if err != nil {
		return failure(err, "Failed to delete book. Please try again.")
	}
	if err := p.client.Books.Delete(ctx, id); err != nil {
		return failure(err, "Failed to delete book. Please try again.")
	}
	return success(fmt.Sprintf("Book %q deleted successfully!", book.Title))
}

func (p *Portal) SetBookStatus(ctx context.Context, id int64, status library.BookStatus) Notice {
	if err := p.enterAdmin(library.RouteAdminBooks); err != nil {
		return failure(err, "")
	}
	book, err := p.client.Books.UpdateStatus(ctx, id, status)
	if err != nil {
		return failure(err, "Failed to update status. Please try again.")
	}
	return success(fmt.Sprintf("Status updated to %q for %q!", status, book.Title))
}

func (p *Portal) Categories(ctx context.Context) ([]*library.Category, error) {
	if err := p.enterAdmin(library.RouteAdminCategories); err != nil {
		return nil, err
	}
	cats, err := p.client.Categories.List(ctx)
	if err != nil {
		return nil, loadFailed(err, "Failed to load categories")
	}
	return cats, nil
}

func (p *Portal) AddCategory(ctx context.Context, name string) Notice {
	if err := p.enterAdmin(library.RouteAdminCategories); err != nil {
		return failure(err, "")
	}
	if _, err := p.client.Categories.Create(ctx, api.CategoryForm{Name: name}); err != nil {
		return failure(err, "Failed to add category")
	}
	return success("Category added successfully!")
}

func (p *Portal) EditCategory(ctx context.Context, id int64, name string) Notice {
	if err := p.enterAdmin(library.RouteAdminCategories); err != nil {
		return failure(err, "")
	}
	if _, err := p.client.Categories.Update(ctx, id, api.CategoryForm{Name: name}); err != nil {
		return failure(err, "Failed to update category")
	}
	return success("Category updated successfully!")
}

func (p *Portal) DeleteCategory(ctx context.Context, id int64) Notice {
	if err := p.enterAdmin(library.RouteAdminCategories); err != nil {
		return failure(err, "")
	}
	if err := p.client.Categories.Delete(ctx, id); err != nil {
		return failure(err, "Failed to delete category")
	}
	return success("Category deleted successfully!")
}

// UserList is the admin user table with counters over all users.
type UserList struct {
	Users []*library.User
	Stats library.UserStats
}

func (p *Portal) Users(ctx context.Context, f library.UserFilter) (*UserList, error) {
	if err := p.enterAdmin(library.RouteAdminUsers); err != nil {
		return nil, err
	}
	users, err := p.client.Users.List(ctx)
	if err != nil {
		return nil, loadFailed(err, "Failed to load users")
	}
	return &UserList{Users: library.FilterUsers(users, f), Stats: library.NewUserStats(users)}, nil
}

// ToggleBlacklist flips the user's blacklist flag.
func (p *Portal) ToggleBlacklist(ctx context.Context, id int64) Notice {
	if err := p.enterAdmin(library.RouteAdminUsers); err != nil {
		return failure(err, "")
	}
	u, err := p.client.Users.Get(ctx, id)
	if err != nil {
		return failure(err, "Failed to load users")
	}
	return p.setBlacklisted(ctx, u, !u.IsBlacklisted)
}

// SetBlacklisted blacklists or restores the user.
func (p *Portal) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) Notice {
	if err := p.enterAdmin(library.RouteAdminUsers); err != nil {
		return failure(err, "")
	}
	u, err := p.client.Users.Get(ctx, id)
	if err != nil {
		return failure(err, "Failed to load users")
	}
	return p.setBlacklisted(ctx, u, blacklisted)
}

func (p *Portal) setBlacklisted(ctx context.Context, u *library.User, blacklisted bool) Notice {
	action, call := "unblacklist", p.client.Users.Unblacklist
	if blacklisted {
		action, call = "blacklist", p.client.Users.Blacklist
	}
	if err := call(ctx, u.ID); err != nil {
		return failure(err, fmt.Sprintf("Failed to %s user", action))
	}
	return success(fmt.Sprintf("Successfully %sed %s!", action, u.Email))
}

func (p *Portal) DeleteUser(ctx context.Context, id int64) Notice {
	if err := p.enterAdmin(library.RouteAdminUsers); err != nil {
		return failure(err, "")
	}
	u, err := p.client.Users.Get(ctx, id)
	if err != nil {
		return failure(err, "Failed to delete user")
	}
	if err := p.client.Users.Delete(ctx, id); err != nil {
		return failure(err, "Failed to delete user")
	}
	return success(fmt.Sprintf("Successfully deleted user %s!", u.Email))
}

// ReservationList is the admin reservation table with counters over all
// reservations.
type ReservationList struct {
	Reservations []*library.Reservation
	Stats        library.ReservationStats
}

func (p *Portal) Reservations(ctx context.Context, f library.ReservationFilter) (*ReservationList, error) {
	if err := p.enterAdmin(library.RouteAdminReservations); err != nil {
		return nil, err
	}
	rs, err := p.client.Reservations.List(ctx)
	if err != nil {
		return nil, loadFailed(err, "Failed to load reservations")
	}
	return &ReservationList{
		Reservations: library.FilterReservations(rs, f),
		Stats:        library.NewReservationStats(rs, p.now()),
	}, nil
}

// IsOverdue evaluates r against the portal clock.
func (p *Portal) IsOverdue(r *library.Reservation) bool { return r.IsOverdue(p.now()) }

func (p *Portal) MarkReturned(ctx context.Context, id int64) Notice {
	if err := p.enterAdmin(library.RouteAdminReservations); err != nil {
		return failure(err, "")
	}
	res, err := p.client.Reservations.Get(ctx, id)
	if err != nil {
		return failure(err, "Failed to return book")
	}
	if err := p.client.Reservations.Return(ctx, id); err != nil {
		return failure(err, "Failed to return book")
	}
	return success(fmt.Sprintf("Successfully marked %q as returned!", res.BookTitle()))
}

func (p *Portal) DeleteReservation(ctx context.Context, id int64) Notice {
	if err := p.enterAdmin(library.RouteAdminReservations); err != nil {
		return failure(err, "")
	}
	if err := p.client.Reservations.Delete(ctx, id); err != nil {
		return failure(err, "Failed to delete reservation")
	}
	return success("Successfully deleted reservation!")
}
