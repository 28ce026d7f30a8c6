// Package routes provides the host's HTTP route table. Handlers are looked up per request,
// so a registered handler can be replaced while the server is running.
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// ErrRouteNotFound is returned when replacing a route that was never registered.
var ErrRouteNotFound = errors.New("route not registered")

// Table is a mutable set of method+path handlers with a set of named markers.
type Table interface {
	Handle(method, path string, h gin.HandlerFunc)
	Replace(method, path string, h gin.HandlerFunc) error
	Lookup(method, path string) (gin.HandlerFunc, bool)
	SetMarker(name string)
	HasMarker(name string) bool
}

// Unwrapper is implemented by tables that wrap another table.
type Unwrapper interface {
	Original() Table
}

// Unwrap follows Original until it reaches a table that wraps nothing.
func Unwrap(t Table) Table {
	for {
		u, ok := t.(Unwrapper)
		if !ok {
			return t
		}
		inner := u.Original()
		if inner == nil {
			return t
		}
		t = inner
	}
}

type routeKey struct {
	method string
	path   string
}

// Router is the concrete route table served by gin.
type Router struct {
	handlers map[routeKey]gin.HandlerFunc
	order    []routeKey
	markers  map[string]struct{}
	mu       sync.RWMutex
}

// NewRouter returns an empty table.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[routeKey]gin.HandlerFunc),
		markers:  make(map[string]struct{}),
	}
}

// Handle registers or overwrites the handler for method and path.
func (r *Router) Handle(method, path string, h gin.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := routeKey{method: method, path: path}
	if _, ok := r.handlers[k]; !ok {
		r.order = append(r.order, k)
	}
	r.handlers[k] = h
}

// GET registers a GET handler.
func (r *Router) GET(path string, h gin.HandlerFunc) {
	r.Handle(http.MethodGet, path, h)
}

// Replace swaps the handler of an existing route.
func (r *Router) Replace(method, path string, h gin.HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := routeKey{method: method, path: path}
	if _, ok := r.handlers[k]; !ok {
		return fmt.Errorf("%s %s: %w", method, path, ErrRouteNotFound)
	}
	r.handlers[k] = h

	return nil
}

// Lookup returns the current handler of a route.
func (r *Router) Lookup(method, path string) (gin.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[routeKey{method: method, path: path}]
	return h, ok
}

// SetMarker records name.
func (r *Router) SetMarker(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markers[name] = struct{}{}
}

// HasMarker reports whether name was recorded.
func (r *Router) HasMarker(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.markers[name]
	return ok
}

// Mount registers every route currently in the table on engine. Each gin route resolves
// its handler through the table at request time. Routes added after Mount are not served.
func (r *Router) Mount(engine gin.IRoutes) {
	r.mu.RLock()
	keys := make([]routeKey, len(r.order))
	copy(keys, r.order)
	r.mu.RUnlock()

	for _, k := range keys {
		engine.Handle(k.method, k.path, r.dispatch(k))
	}
}

func (r *Router) dispatch(k routeKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		h, ok := r.Lookup(k.method, k.path)
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		h(c)
	}
}
