package library

import (
	"strings"
	"sync"
)

// Routes the client can be sent to.
const (
	RouteHome              = "/"
	RouteLogin             = "/login"
	RouteSignup            = "/signup"
	RouteBooks             = "/user/books"
	RouteBookDetails       = "/user/book-details"
	RouteProfile           = "/user/profile"
	RouteAdminDashboard    = "/admin/dashboard"
	RouteAdminBooks        = "/admin/books"
	RouteAdminCategories   = "/admin/categories"
	RouteAdminUsers        = "/admin/users"
	RouteAdminReservations = "/admin/reservations"
)

// LandingRoute is where a freshly logged-in account is sent.
func LandingRoute(role Role) string {
	if role == RoleLibrarian {
		return RouteAdminDashboard
	}
	return RouteHome
}

// Navigator moves the client between views.
type Navigator interface {
	Navigate(route string)
	Current() string
}

// Router is an in-memory Navigator that keeps the visited routes.
type Router struct {
	mu      sync.Mutex
	history []string
}

// NewRouter starts at route.
func NewRouter(route string) *Router {
	return &Router{history: []string{route}}
}

func (r *Router) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, route)
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return RouteHome
	}
	return r.history[len(r.history)-1]
}

// History returns a copy of every route visited, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// CoverURL resolves a backend-relative image path against the asset origin.
// Absolute URLs are returned unchanged.
func CoverURL(origin, imageURL string) string {
	if imageURL == "" {
		return ""
	}
	if strings.HasPrefix(imageURL, "http://") || strings.HasPrefix(imageURL, "https://") {
		return imageURL
	}
	origin = strings.TrimRight(origin, "/")
	if !strings.HasPrefix(imageURL, "/") {
		imageURL = "/" + imageURL
	}
	return origin + imageURL
}
