package server

import (
	"net/http"
	"strings"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// PathRoute maps an exact path, or every path under a prefix ending in "/",
// to a handler
type PathRoute struct {
	Path    string
	Handler RouteHandler
}

// RouteByPath dispatches to the first route matching the request path.
// Exact paths are tried before prefixes. Returns false when nothing matched.
func RouteByPath(w http.ResponseWriter, r *http.Request, routes []PathRoute) bool {
	path := strings.TrimSuffix(r.URL.Path, "/")

	for _, route := range routes {
		if !strings.HasSuffix(route.Path, "/") && path == route.Path {
			route.Handler(w, r)
			return true
		}
	}
	for _, route := range routes {
		if strings.HasSuffix(route.Path, "/") && strings.HasPrefix(r.URL.Path, route.Path) && len(r.URL.Path) > len(route.Path) {
			route.Handler(w, r)
			return true
		}
	}
	return false
}
