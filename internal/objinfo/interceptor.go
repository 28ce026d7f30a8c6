package objinfo

import (
	"context"
	"net/http"

	"github.com/andrei-cloud/go_nodehost/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Routes served by the interceptor.
const (
	RouteList = "/object_info"
	RouteNode = "/object_info/:node_class"

	// Marker is set on the route table once the interceptor is installed.
	Marker = "objinfo"
)

const (
	sourceCache    = "cache"
	sourceFallback = "fallback"
)

// Interceptor answers object_info requests from the cache, falling back to extracting
// from the registry directly while the cache is not ready.
type Interceptor struct {
	registry  Registry
	cache     *Cache
	extractor *Extractor
	metrics   *Metrics
}

// NewInterceptor creates an interceptor. It only reads from cache.
func NewInterceptor(reg Registry, cache *Cache, ex *Extractor, m *Metrics) *Interceptor {
	if m == nil {
		m = NewMetrics(nil)
	}

	return &Interceptor{registry: reg, cache: cache, extractor: ex, metrics: m}
}

// ListAll returns metadata for every node in the registry.
//
// With a ready cache the cached entries are returned, plus a direct extraction of nodes
// registered since the watcher last looked. Otherwise every node is extracted directly.
// Nodes whose extraction failed are left out.
func (i *Interceptor) ListAll(ctx context.Context) map[string]Metadata {
	snap, err := i.registry.Snapshot()
	if err != nil {
		log.Debug().Str("event", "registry_unavailable").Err(err).Msg("serving empty object_info")
		return map[string]Metadata{}
	}

	if !i.cache.IsReady() {
		i.metrics.Requests.WithLabelValues(RouteList, sourceFallback).Inc()
		return i.extractor.ExtractAll(ctx, snap)
	}

	i.metrics.Requests.WithLabelValues(RouteList, sourceCache).Inc()
	out := i.cache.Snapshot()
	for _, id := range snap.IDs() {
		if _, ok := out[id]; ok || i.cache.Known(id) {
			continue
		}
		if m, ok := i.extractor.extractFrom(ctx, snap, id); ok {
			out[id] = m
		}
	}

	return out
}

// GetOne returns a map holding the metadata of id, or an empty map when id is unknown or
// its metadata cannot be extracted.
func (i *Interceptor) GetOne(ctx context.Context, id string) map[string]Metadata {
	out := map[string]Metadata{}

	snap, err := i.registry.Snapshot()
	if err != nil {
		return out
	}
	if _, ok := snap.Descriptor(id); !ok {
		return out
	}

	if i.cache.IsReady() && i.cache.Known(id) {
		i.metrics.Requests.WithLabelValues(RouteNode, sourceCache).Inc()
		if m, ok := i.cache.Get(id); ok {
			out[id] = m
		}

		return out
	}

	i.metrics.Requests.WithLabelValues(RouteNode, sourceFallback).Inc()
	if m, ok := i.extractor.extractFrom(ctx, snap, id); ok {
		out[id] = m
	}

	return out
}

// HandleList serves GET /object_info.
func (i *Interceptor) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, i.ListAll(c.Request.Context()))
}

// HandleNode serves GET /object_info/:node_class.
func (i *Interceptor) HandleNode(c *gin.Context) {
	c.JSON(http.StatusOK, i.GetOne(c.Request.Context(), c.Param("node_class")))
}

// Install replaces the host's object_info handlers with the interceptor's. Wrapping
// tables are unwrapped first so the underlying table is patched. Installing twice is a
// no-op; no other route is touched.
func (i *Interceptor) Install(t routes.Table) error {
	if t == nil {
		return &RouteInstallError{Err: routes.ErrRouteNotFound}
	}
	table := routes.Unwrap(t)

	if table.HasMarker(Marker) {
		log.Info().Str("event", "patch_skipped").Msg("object_info routes already patched")
		return nil
	}

	for _, path := range []string{RouteList, RouteNode} {
		if _, ok := table.Lookup(http.MethodGet, path); !ok {
			return &RouteInstallError{Route: path, Err: routes.ErrRouteNotFound}
		}
	}

	if err := table.Replace(http.MethodGet, RouteList, i.HandleList); err != nil {
		return &RouteInstallError{Route: RouteList, Err: err}
	}
	if err := table.Replace(http.MethodGet, RouteNode, i.HandleNode); err != nil {
		return &RouteInstallError{Route: RouteNode, Err: err}
	}
	table.SetMarker(Marker)

	log.Info().Str("event", "patch_applied").Msg("object_info routes patched")

	return nil
}
