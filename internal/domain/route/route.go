// Package route classifies storefront locations as public or authenticated.
package route

import (
	"strings"
	"sync"
)

// Access describes who may view a route.
type Access int

const (
	// Authenticated routes require a session. This is the zero value so that
	// unknown routes fail closed.
	Authenticated Access = iota
	// Public routes are viewable anonymously.
	Public
	// Admin routes require an admin session.
	Admin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Admin:
		return "admin"
	default:
		return "authenticated"
	}
}

// Well-known paths.
const (
	Home     = "/"
	Login    = "/login"
	Register = "/register"
	Products = "/products"
	Cart     = "/cart"
	Wishlist = "/wishlist"
	Checkout = "/checkout"
	Orders   = "/orders"
	Profile  = "/profile"
)

// publicExact are public pages matched as a whole path.
var publicExact = map[string]struct{}{
	Home:              {},
	Products:          {},
	"/shop":           {},
	"/about":          {},
	"/contact":        {},
	"/faq":            {},
	"/shipping":       {},
	"/returns-policy": {},
	"/privacy":        {},
	"/terms":          {},
	Login:             {},
	Register:          {},
}

// Classify returns the access level of path. Query strings, fragments and
// trailing slashes are ignored. Product detail pages ("/products/{id}") are
// public; nested product paths are not.
func Classify(path string) Access {
	p := normalize(path)
	if _, ok := publicExact[p]; ok {
		return Public
	}
	if id, ok := strings.CutPrefix(p, Products+"/"); ok && id != "" && !strings.Contains(id, "/") {
		return Public
	}
	if p == "/admin" || strings.HasPrefix(p, "/admin/") {
		return Admin
	}
	return Authenticated
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// Navigator tracks the current location. The access level is computed once
// per navigation rather than on every request.
type Navigator struct {
	mu     sync.RWMutex
	path   string
	access Access
}

// NewNavigator returns a Navigator positioned at Home.
func NewNavigator() *Navigator {
	return &Navigator{path: Home, access: Public}
}

// Navigate moves to path and classifies it.
func (n *Navigator) Navigate(path string) {
	p := normalize(path)
	a := Classify(p)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = p
	n.access = a
}

// Current returns the current path and its access level.
func (n *Navigator) Current() (string, Access) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.path, n.access
}

// Path returns the current path.
func (n *Navigator) Path() string {
	p, _ := n.Current()
	return p
}
