// Package server runs the node host's HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/andrei-cloud/go_nodehost/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config holds the HTTP server settings.
type Config struct {
	Address string
	// AccessLog registers the host routes through a logging shim.
	AccessLog bool
}

// Server serves the host routes from a replaceable route table.
type Server struct {
	address   string
	engine    *gin.Engine
	router    *routes.Router
	table     routes.Table
	registry  *nodes.Registry
	extractor *objinfo.Extractor
	httpSrv   *http.Server
	mountOnce sync.Once
}

// NewServer creates the server and registers the host's own routes, including the
// uncached object_info handlers.
func NewServer(
	cfg Config,
	reg *nodes.Registry,
	ex *objinfo.Extractor,
	gatherer prometheus.Gatherer,
) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID())

	router := routes.NewRouter()
	var table routes.Table = router
	if cfg.AccessLog {
		table = routes.NewShim(router)
	}

	s := &Server{
		address:   cfg.Address,
		engine:    engine,
		router:    router,
		table:     table,
		registry:  reg,
		extractor: ex,
	}
	handler := func(w http.ResponseWriter, r *http.Request) {
		s.Handler().ServeHTTP(w, r)
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Address,
		Handler:           http.HandlerFunc(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	table.Handle(http.MethodGet, "/health", s.health)
	table.Handle(http.MethodGet, objinfo.RouteList, s.objectInfo)
	table.Handle(http.MethodGet, objinfo.RouteNode, s.objectInfoNode)
	if gatherer != nil {
		table.Handle(http.MethodGet, "/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Routes returns the table the host registered its routes through.
func (s *Server) Routes() routes.Table {
	return s.table
}

// Handler returns the HTTP handler. The route table is mounted on first use.
func (s *Server) Handler() http.Handler {
	s.mountOnce.Do(func() {
		s.router.Mount(s.engine)
	})

	return s.engine
}

// Start serves HTTP until Stop is called.
func (s *Server) Start() error {
	log.Info().Str("event", "http_started").Str("address", s.address).Msg("server started")

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop gracefully shuts down the server. A server stopped before Start never serves.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// requestID tags every request with an identifier.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)

		log.Debug().
			Str("event", "request_received").
			Str("request_id", id).
			Str("client_ip", c.ClientIP()).
			Str("path", c.Request.URL.Path).
			Msg("received request")

		c.Next()
	}
}
