//nolint:all
package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andrei-cloud/anet"
	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	server "github.com/andrei-cloud/go_nodehost/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "127.0.0.1:1501"

func init() {
	gin.SetMode(gin.TestMode)
}

// newRegistry returns an available registry holding a working node and a broken one.
func newRegistry(t *testing.T) *nodes.Registry {
	t.Helper()
	r := nodes.NewRegistry()

	add := nodes.NewStatic(json.RawMessage(`{"required":{"a":["INT"],"b":["INT"]}}`), []string{"INT"})
	require.NoError(t, add.Set(nodes.Category, "math"))
	require.NoError(t, r.Register("Add", add, "Add Integers"))
	require.NoError(t, r.Register("Broken", nodes.NewStatic(json.RawMessage(`{}`), nil), ""))
	r.MarkAvailable()

	return r
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]json.RawMessage
	_ = json.Unmarshal(rec.Body.Bytes(), &body)

	return rec, body
}

func TestHostRoutesUncached(t *testing.T) {
	reg := newRegistry(t)
	srv := server.NewServer(server.Config{}, reg, objinfo.NewExtractor(time.Second, nil), nil)
	h := srv.Handler()

	rec, body := get(t, h, "/object_info")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "Add")
	assert.NotContains(t, body, "Broken")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var m objinfo.Metadata
	require.NoError(t, json.Unmarshal(body["Add"], &m))
	assert.Equal(t, "Add Integers", m.DisplayName)
	assert.Equal(t, "math", m.Category)
	assert.Equal(t, []string{"INT"}, m.Output)

	_, body = get(t, h, "/object_info/Add")
	assert.Len(t, body, 1)

	_, body = get(t, h, "/object_info/Missing")
	assert.Empty(t, body)

	_, body = get(t, h, "/object_info/Broken")
	assert.Empty(t, body)

	rec, _ = get(t, h, "/health")
	assert.JSONEq(t, `{"status":"ok","nodes":2}`, rec.Body.String())
}

func TestHostRoutesInterceptedWithAccessLog(t *testing.T) {
	reg := newRegistry(t)
	promReg := prometheus.NewRegistry()
	metrics := objinfo.NewMetrics(promReg)
	svc := objinfo.NewService(reg, objinfo.DefaultWatcherConfig(), time.Second, metrics)

	srv := server.NewServer(server.Config{AccessLog: true}, reg, svc.Extractor, promReg)
	h := srv.Handler()
	require.NoError(t, svc.Interceptor.Install(srv.Routes()))

	for !svc.Cache.IsReady() {
		require.NoError(t, svc.Watcher.Cycle(context.Background()))
	}

	_, body := get(t, h, "/object_info")
	assert.Contains(t, body, "Add")
	assert.NotContains(t, body, "Broken")

	rec, _ := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nodehost_objinfo_requests_total{route="/object_info",source="cache"} 1`)
	assert.Contains(t, rec.Body.String(), "nodehost_objinfo_extraction_failures_total 1")
}

func TestHostRoutesRegistryUnavailable(t *testing.T) {
	srv := server.NewServer(server.Config{}, nodes.NewRegistry(), objinfo.NewExtractor(time.Second, nil), nil)
	h := srv.Handler()

	rec, _ := get(t, h, "/object_info")
	assert.JSONEq(t, `{}`, rec.Body.String())
	rec, _ = get(t, h, "/object_info/Add")
	assert.JSONEq(t, `{}`, rec.Body.String())
}

// startQueryServer starts the TCP query server for testing.
func startQueryServer(t *testing.T, q server.Querier) *server.QueryServer {
	t.Helper()
	srv, err := server.NewQueryServer(testAddr, q)
	if err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			t.Fatalf("server start error: %v", err)
		}
	case <-time.After(1 * time.Second):
		// Allow some time for the server to start
	}

	time.Sleep(100 * time.Millisecond)

	return srv
}

func dialFactory(addr string) (anet.PoolItem, error) {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
		conn.Close()

		return nil, err
	}

	return conn, nil
}

func TestQueryServer(t *testing.T) {
	reg := newRegistry(t)
	svc := objinfo.NewService(reg, objinfo.DefaultWatcherConfig(), time.Second, nil)

	srv := startQueryServer(t, svc.Interceptor)
	defer srv.Stop()

	pool := anet.NewPool(4, dialFactory, testAddr, nil)
	defer pool.Close()

	broker := anet.NewBroker([]anet.Pool{pool}, 1, nil, nil)
	go broker.Start()
	defer broker.Close()

	req := []byte("OA")
	resp, err := broker.Send(&req)
	require.NoError(t, err)
	require.Equal(t, "OB", string(resp[:2]))

	var all map[string]objinfo.Metadata
	require.NoError(t, json.Unmarshal(resp[2:], &all))
	assert.Contains(t, all, "Add")
	assert.NotContains(t, all, "Broken")

	req = []byte("OIAdd")
	resp, err = broker.Send(&req)
	require.NoError(t, err)
	require.Equal(t, "OJ", string(resp[:2]))

	var one map[string]objinfo.Metadata
	require.NoError(t, json.Unmarshal(resp[2:], &one))
	assert.Len(t, one, 1)
	assert.Equal(t, "Add Integers", one["Add"].DisplayName)

	req = []byte("OIMissing")
	resp, err = broker.Send(&req)
	require.NoError(t, err)
	assert.Equal(t, "OJ{}", string(resp))

	// unknown commands get the incremented code and 68
	req = []byte("ZZ0123")
	resp, err = broker.Send(&req)
	require.NoError(t, err)
	assert.Equal(t, "ZA68", string(resp))
}
