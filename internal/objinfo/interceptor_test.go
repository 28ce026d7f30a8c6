package objinfo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/andrei-cloud/go_nodehost/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	registry *nodes.Registry
	cache    *Cache
	watcher  *Watcher
	icpt     *Interceptor
	router   *routes.Router
	engine   *gin.Engine
}

func hostHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"host": true})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := newAvailableRegistry(t)
	svc := NewService(r, WatcherConfig{}, time.Second, nil)

	router := routes.NewRouter()
	router.GET(RouteList, hostHandler)
	router.GET(RouteNode, hostHandler)
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	engine := gin.New()
	router.Mount(engine)

	return &fixture{
		registry: r,
		cache:    svc.Cache,
		watcher:  svc.Watcher,
		icpt:     svc.Interceptor,
		router:   router,
		engine:   engine,
	}
}

func (f *fixture) get(t *testing.T, path string) (int, map[string]json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())

	return rec.Code, body
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	for !f.cache.IsReady() {
		require.NoError(t, f.watcher.Cycle(context.Background()))
	}
}

func TestInterceptorEmptyRegistry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.icpt.Install(f.router))

	code, body := f.get(t, "/object_info")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body)

	f.drain(t)
	code, body = f.get(t, "/object_info")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body)
}

func TestInterceptorServesCachedNode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.icpt.Install(f.router))

	register(t, f.registry, "A", staticNode(t, `{}`))
	require.NoError(t, f.watcher.Cycle(context.Background()))
	require.NoError(t, f.watcher.Cycle(context.Background()))
	require.True(t, f.cache.IsReady())

	_, body := f.get(t, "/object_info")
	require.Contains(t, body, "A")

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body["A"], &m))
	assert.JSONEq(t, `{}`, string(m["input"]))
	assert.JSONEq(t, `[]`, string(m["output"]))
	assert.JSONEq(t, `[]`, string(m["output_is_list"]))
	assert.JSONEq(t, `false`, string(m["output_node"]))
}

func TestInterceptorFailedNode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.icpt.Install(f.router))

	register(t, f.registry, "B", failingOutputs())
	register(t, f.registry, "C", staticNode(t, `{}`))

	for _, ready := range []bool{false, true} {
		if ready {
			f.drain(t)
		}

		code, body := f.get(t, "/object_info")
		assert.Equal(t, http.StatusOK, code)
		assert.NotContains(t, body, "B")
		assert.Contains(t, body, "C")

		code, body = f.get(t, "/object_info/B")
		assert.Equal(t, http.StatusOK, code)
		assert.Empty(t, body)
	}
}

func TestInterceptorUnknownNode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.icpt.Install(f.router))
	register(t, f.registry, "A", staticNode(t, `{}`))

	code, body := f.get(t, "/object_info/does-not-exist")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body)

	f.drain(t)
	code, body = f.get(t, "/object_info/does-not-exist")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body)

	_, body = f.get(t, "/object_info/A")
	assert.Len(t, body, 1)
	assert.Contains(t, body, "A")
}

func TestInterceptorUsesCacheWhenReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d := &funcDescriptor{}
	register(t, f.registry, "A", d)

	// fallback extracts on every call while not ready
	assert.Contains(t, f.icpt.ListAll(ctx), "A")
	assert.Contains(t, f.icpt.GetOne(ctx, "A"), "A")
	assert.Equal(t, int32(2), d.calls.Load())

	f.drain(t)
	calls := d.calls.Load()
	for i := 0; i < 3; i++ {
		assert.Contains(t, f.icpt.ListAll(ctx), "A")
		assert.Contains(t, f.icpt.GetOne(ctx, "A"), "A")
	}
	assert.Equal(t, calls, d.calls.Load(), "ready cache must not re-extract")
}

func TestInterceptorNodeRegisteredAfterReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	register(t, f.registry, "A", staticNode(t, `{}`))
	f.drain(t)

	register(t, f.registry, "D", staticNode(t, `{}`, "MODEL"))
	assert.False(t, f.cache.Known("D"))

	all := f.icpt.ListAll(ctx)
	assert.Contains(t, all, "A")
	assert.Contains(t, all, "D")
	assert.Contains(t, f.icpt.GetOne(ctx, "D"), "D")
	assert.False(t, f.cache.Known("D"), "serving must not write to the cache")
}

func TestInterceptorFallbackEquivalence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok := staticNode(t, `{"required":{"x":["INT"]},"optional":{"y":["FLOAT"]}}`, "INT", "FLOAT")
	require.NoError(t, ok.Set(nodes.Category, "math"))
	register(t, f.registry, "A", ok)
	register(t, f.registry, "B", failingOutputs())
	register(t, f.registry, "C", staticNode(t, `{}`))
	require.NoError(t, f.registry.Register("D", staticNode(t, `{}`), "Display D"))

	fallback, err := json.Marshal(f.icpt.ListAll(ctx))
	require.NoError(t, err)

	f.drain(t)
	cached, err := json.Marshal(f.icpt.ListAll(ctx))
	require.NoError(t, err)

	assert.JSONEq(t, string(fallback), string(cached))
}

func TestFallbackFailuresCountedApartFromNodeFailures(t *testing.T) {
	ctx := context.Background()
	r := newAvailableRegistry(t)
	register(t, r, "B", failingOutputs())
	register(t, r, "C", staticNode(t, `{}`))
	svc := NewService(r, WatcherConfig{}, time.Second, nil)

	for i := 0; i < 3; i++ {
		assert.NotContains(t, svc.Interceptor.ListAll(ctx), "B")
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(svc.Metrics.FallbackFailures))
	assert.Zero(t, testutil.ToFloat64(svc.Metrics.ExtractionFailures))

	for !svc.Cache.IsReady() {
		require.NoError(t, svc.Watcher.Cycle(ctx))
	}
	for i := 0; i < 3; i++ {
		assert.NotContains(t, svc.Interceptor.ListAll(ctx), "B")
		assert.Empty(t, svc.Interceptor.GetOne(ctx, "B"))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.ExtractionFailures), "one failure per node")
	assert.Equal(t, 3.0, testutil.ToFloat64(svc.Metrics.FallbackFailures))
}

func TestInterceptorRegistryUnavailable(t *testing.T) {
	r := nodes.NewRegistry()
	icpt := NewService(r, WatcherConfig{}, time.Second, nil).Interceptor

	assert.Empty(t, icpt.ListAll(context.Background()))
	assert.Empty(t, icpt.GetOne(context.Background(), "A"))
	assert.NotNil(t, icpt.ListAll(context.Background()))
}

func TestInstallReplacesOnlyObjectInfoRoutes(t *testing.T) {
	f := newFixture(t)
	register(t, f.registry, "A", staticNode(t, `{}`))

	_, body := f.get(t, "/object_info")
	assert.Contains(t, body, "host", "host handler is served before install")

	require.NoError(t, f.icpt.Install(f.router))
	assert.True(t, f.router.HasMarker(Marker))

	_, body = f.get(t, "/object_info")
	assert.Contains(t, body, "A")
	assert.NotContains(t, body, "host")

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestInstallIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.icpt.Install(f.router))

	// a second install must not replace what is already there
	require.NoError(t, f.router.Replace(http.MethodGet, RouteList, hostHandler))
	require.NoError(t, f.icpt.Install(f.router))

	_, body := f.get(t, "/object_info")
	assert.Contains(t, body, "host")
}

// readOnlyWrapper rejects changes made through it; only its original table can be patched.
type readOnlyWrapper struct {
	routes.Table
	inner routes.Table
}

func (w *readOnlyWrapper) Original() routes.Table { return w.inner }

func (w *readOnlyWrapper) Replace(string, string, gin.HandlerFunc) error {
	return errors.New("wrapper is read-only")
}

func (w *readOnlyWrapper) SetMarker(string) {}

func TestInstallPatchesOriginalTable(t *testing.T) {
	f := newFixture(t)
	register(t, f.registry, "A", staticNode(t, `{}`))

	wrapped := &readOnlyWrapper{Table: f.router, inner: f.router}
	require.NoError(t, f.icpt.Install(routes.NewShim(wrapped)))
	assert.True(t, f.router.HasMarker(Marker))

	_, body := f.get(t, "/object_info")
	assert.Contains(t, body, "A")
}

func TestInstallMissingRoute(t *testing.T) {
	f := newFixture(t)

	router := routes.NewRouter()
	router.GET(RouteList, hostHandler)

	err := f.icpt.Install(router)
	var installErr *RouteInstallError
	require.ErrorAs(t, err, &installErr)
	assert.Equal(t, RouteNode, installErr.Route)
	assert.ErrorIs(t, err, routes.ErrRouteNotFound)
	assert.False(t, router.HasMarker(Marker))

	// the existing route is left untouched
	h, ok := router.Lookup(http.MethodGet, RouteList)
	require.True(t, ok)
	engine := gin.New()
	router.Mount(engine)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, RouteList, nil))
	assert.JSONEq(t, `{"host":true}`, rec.Body.String())
	assert.NotNil(t, h)

	assert.Error(t, f.icpt.Install(nil))
}
