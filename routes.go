package jwtmiddleware

import (
	"net/http"
	"slices"
	"sync"
)

// RouteTable records which routes require authentication. Routes are keyed
// by the pattern the router matched: a net/http ServeMux pattern such as
// "GET /me", a gin FullPath, an echo Path or a gRPC full method name.
//
// Routes that are not in the table pass through the gate untouched.
type RouteTable struct {
	mu        sync.RWMutex
	protected map[string]struct{}
}

// NewRouteTable returns a table protecting patterns.
func NewRouteTable(patterns ...string) *RouteTable {
	t := &RouteTable{protected: make(map[string]struct{})}
	t.Protect(patterns...)
	return t
}

// Protect marks patterns as requiring authentication.
func (t *RouteTable) Protect(patterns ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range patterns {
		t.protected[p] = struct{}{}
	}
}

// RequiresAuth reports whether pattern is protected. A nil table protects
// nothing.
func (t *RouteTable) RequiresAuth(pattern string) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.protected[pattern]
	return ok
}

// Patterns returns the protected patterns in sorted order.
func (t *RouteTable) Patterns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	patterns := make([]string, 0, len(t.protected))
	for p := range t.protected {
		patterns = append(patterns, p)
	}
	slices.Sort(patterns)
	return patterns
}

// RouteResolver returns the route pattern a request will be dispatched to,
// or "" when no route matches.
type RouteResolver func(r *http.Request) string

// ServeMuxResolver resolves routes the way mux would dispatch them.
func ServeMuxResolver(mux *http.ServeMux) RouteResolver {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

// PathResolver uses the request path as the pattern. It is the default when
// no ServeMux is configured.
func PathResolver(r *http.Request) string {
	return r.URL.Path
}
