package gateway

import (
	"net/http"
	"strings"
)

// Middleware wraps a handler, e.g. auth or role checks.
type Middleware func(http.Handler) http.Handler

// Router registers method-qualified ServeMux patterns ("GET /path").
type Router struct {
	mux    *http.ServeMux
	prefix string
	chain  []Middleware
}

func NewRouter() *Router {
	return &Router{
		mux: http.NewServeMux(),
	}
}

func (r *Router) Mux() *http.ServeMux {
	return r.mux
}

// Group returns a router sharing the same mux whose patterns are mounted under
// prefix and wrapped by mw after the parent's middleware.
func (r *Router) Group(prefix string, mw ...Middleware) *Router {
	chain := make([]Middleware, 0, len(r.chain)+len(mw))
	chain = append(chain, r.chain...)
	chain = append(chain, mw...)
	return &Router{
		mux:    r.mux,
		prefix: r.prefix + prefix,
		chain:  chain,
	}
}

// Handle registers handler for pattern, applying the group's prefix and middleware.
func (r *Router) Handle(pattern string, handler http.Handler) {
	for i := len(r.chain) - 1; i >= 0; i-- {
		handler = r.chain[i](handler)
	}
	r.mux.Handle(r.qualify(pattern), handler)
}

func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

func (r *Router) qualify(pattern string) string {
	if r.prefix == "" {
		return pattern
	}
	method, path, found := strings.Cut(pattern, " ")
	if !found {
		return r.prefix + pattern
	}
	return method + " " + r.prefix + path
}
