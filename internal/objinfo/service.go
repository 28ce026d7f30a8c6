package objinfo

import (
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
)

// Service bundles the cache, watcher and interceptor around one registry.
type Service struct {
	Cache       *Cache
	Extractor   *Extractor
	Watcher     *Watcher
	Interceptor *Interceptor
	Metrics     *Metrics
}

// NewService wires a cache, extractor, watcher and interceptor for reg.
func NewService(reg Registry, cfg WatcherConfig, extractTimeout time.Duration, m *Metrics) *Service {
	if m == nil {
		m = NewMetrics(nil)
	}
	cache := NewCache()
	ex := NewExtractor(extractTimeout, m)

	return &Service{
		Cache:       cache,
		Extractor:   ex,
		Watcher:     NewWatcher(reg, cache, ex, cfg, m),
		Interceptor: NewInterceptor(reg, cache, ex, m),
		Metrics:     m,
	}
}

var _ Registry = (*nodes.Registry)(nil)
