package localities

import (
	"errors"
	"net/http"
	"path"
	"strings"
)

// Mux is satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

var errNilMux = errors.New("localities: missing mux")

// Mount registers c on mux under basePath and returns the pattern used.
func (c *Component) Mount(mux Mux, basePath string) (string, error) {
	if mux == nil {
		return "", errNilMux
	}
	pattern := JoinPath(basePath, c.opts.RoutePath)
	mux.Handle(pattern, c)
	return pattern, nil
}

// RegisterRoutes builds a component from fns and mounts it on mux.
func RegisterRoutes(mux Mux, basePath string, fns ...OptionFn) (string, error) {
	if mux == nil {
		return "", errNilMux
	}
	c, err := New(fns...)
	if err != nil {
		return "", err
	}
	return c.Mount(mux, basePath)
}

// JoinPath joins basePath and routePath into a rooted, slash-clean pattern.
func JoinPath(basePath, routePath string) string {
	return path.Join("/", strings.TrimSpace(basePath), strings.TrimSpace(routePath))
}
