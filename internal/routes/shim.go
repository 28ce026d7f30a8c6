package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Shim wraps a table and access-logs every handler registered through it.
type Shim struct {
	inner Table
}

// NewShim wraps t.
func NewShim(t Table) *Shim {
	return &Shim{inner: t}
}

// Original returns the wrapped table.
func (s *Shim) Original() Table {
	return s.inner
}

// Handle registers a logged handler on the wrapped table.
func (s *Shim) Handle(method, path string, h gin.HandlerFunc) {
	s.inner.Handle(method, path, logged(method, path, h))
}

// Replace swaps in a logged handler on the wrapped table.
func (s *Shim) Replace(method, path string, h gin.HandlerFunc) error {
	return s.inner.Replace(method, path, logged(method, path, h))
}

// Lookup delegates to the wrapped table.
func (s *Shim) Lookup(method, path string) (gin.HandlerFunc, bool) {
	return s.inner.Lookup(method, path)
}

// SetMarker delegates to the wrapped table.
func (s *Shim) SetMarker(name string) {
	s.inner.SetMarker(name)
}

// HasMarker delegates to the wrapped table.
func (s *Shim) HasMarker(name string) bool {
	return s.inner.HasMarker(name)
}

func logged(method, path string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		h(c)
		log.Debug().
			Str("event", "route_served").
			Str("method", method).
			Str("route", path).
			Str("request_id", c.GetString("request_id")).
			Int("status", c.Writer.Status()).
			Str("duration", time.Since(start).String()).
			Msg("route handled")
	}
}
