// Package portal implements the pages of the library client: each page checks
// the session's role before requesting anything, loads what it shows, and turns
// the outcome of every action into a Notice.
package portal

import (
	"errors"
	"time"

	"library-portal/library"
	"library-portal/library/api"
	"library-portal/library/session"
)

var (
	// ErrRedirected is returned when a guard sent the client elsewhere.
	ErrRedirected = errors.New("redirected")
	// ErrSessionLoading is returned when the session has not been initialised.
	ErrSessionLoading = errors.New("session not initialised")
)

type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
	NoticeRedirected
)

// Notice is the banner an action leaves behind.
type Notice struct {
	Kind NoticeKind
	Text string
}

func success(text string) Notice { return Notice{Kind: NoticeSuccess, Text: text} }

// failure converts err into an error banner with fallback for unknown errors.
func failure(err error, fallback string) Notice {
	if errors.Is(err, ErrRedirected) {
		return Notice{Kind: NoticeRedirected}
	}
	if errors.Is(err, ErrSessionLoading) {
		return Notice{Kind: NoticeError, Text: "Session is still loading."}
	}
	return Notice{Kind: NoticeError, Text: api.ErrorMessage(err, fallback)}
}

// Failure is a page load that did not complete.
type Failure struct {
	Text string
	Err  error
}

func (f *Failure) Error() string { return f.Text }
func (f *Failure) Unwrap() error { return f.Err }

func loadFailed(err error, text string) error {
	return &Failure{Text: text, Err: err}
}

type Portal struct {
	client      *api.Client
	session     *session.Store
	nav         library.Navigator
	assetOrigin string
	now         func() time.Time
}

func New(client *api.Client, sess *session.Store, nav library.Navigator, assetOrigin string) *Portal {
	return &Portal{
		client:      client,
		session:     sess,
		nav:         nav,
		assetOrigin: assetOrigin,
		now:         time.Now,
	}
}

// CoverURL is the absolute URL of a book cover.
func (p *Portal) CoverURL(imageURL string) string {
	return library.CoverURL(p.assetOrigin, imageURL)
}

// Route is the view the client is on.
func (p *Portal) Route() string { return p.nav.Current() }

// enter checks that any session exists before showing route.
func (p *Portal) enter(route string) error {
	if p.session.Loading() {
		return ErrSessionLoading
	}
	if !p.session.IsAuthenticated() {
		p.nav.Navigate(library.RouteLogin)
		return ErrRedirected
	}
	p.show(route)
	return nil
}

// enterAdmin checks for a librarian session before showing route.
func (p *Portal) enterAdmin(route string) error {
	if p.session.Loading() {
		return ErrSessionLoading
	}
	if !p.session.IsLibrarian() {
		p.nav.Navigate(library.RouteHome)
		return ErrRedirected
	}
	p.show(route)
	return nil
}

func (p *Portal) show(route string) {
	if p.nav.Current() != route {
		p.nav.Navigate(route)
	}
}
