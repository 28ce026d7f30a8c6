package objinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/rs/zerolog/log"
)

// Registry is the read side of the node registry.
type Registry interface {
	Snapshot() (*nodes.Snapshot, error)
}

// WatcherConfig holds the watcher's sleep intervals.
type WatcherConfig struct {
	// PollInterval is the sleep between regular cycles.
	PollInterval time.Duration
	// UnavailableInterval is the sleep while the registry is not yet available.
	UnavailableInterval time.Duration
	// BackoffInterval is the sleep after a cycle failed unexpectedly.
	BackoffInterval time.Duration
}

// DefaultWatcherConfig returns the standard intervals.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval:        100 * time.Millisecond,
		UnavailableInterval: 100 * time.Millisecond,
		BackoffInterval:     time.Second,
	}
}

// Watcher polls the registry and fills the cache with metadata of newly registered nodes.
//
// The processed set is owned by the goroutine running the watcher; Run and Cycle must not
// be called concurrently.
type Watcher struct {
	registry  Registry
	cache     *Cache
	extractor *Extractor
	metrics   *Metrics
	cfg       WatcherConfig

	processed   map[string]struct{}
	lastTotal   int
	firstGrowth time.Time
}

// NewWatcher creates a watcher writing into cache.
func NewWatcher(reg Registry, cache *Cache, ex *Extractor, cfg WatcherConfig, m *Metrics) *Watcher {
	if m == nil {
		m = NewMetrics(nil)
	}

	return &Watcher{
		registry:  reg,
		cache:     cache,
		extractor: ex,
		metrics:   m,
		cfg:       cfg,
		processed: make(map[string]struct{}),
	}
}

// Run polls until ctx is cancelled. Errors never stop the loop.
func (w *Watcher) Run(ctx context.Context) {
	log.Info().
		Str("event", "watcher_started").
		Str("poll_interval", w.cfg.PollInterval.String()).
		Msg("node watcher started")

	for {
		delay := w.cfg.PollInterval
		if err := w.Cycle(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, nodes.ErrUnavailable):
				delay = w.cfg.UnavailableInterval
			default:
				w.metrics.WatcherErrors.Inc()
				log.Error().
					Str("event", "watcher_error").
					Err(err).
					Str("backoff", w.cfg.BackoffInterval.String()).
					Msg("node watcher cycle failed")
				delay = w.cfg.BackoffInterval
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Str("event", "watcher_stopped").Msg("node watcher stopped")
			return
		case <-timer.C:
		}
	}
}

// Cycle runs one poll cycle. It returns nodes.ErrUnavailable while the registry is not
// available and any unexpected failure, including a panic, as an error.
func (w *Watcher) Cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watcher cycle panicked: %v", r)
		}
	}()

	snap, err := w.registry.Snapshot()
	if err != nil {
		return fmt.Errorf("registry snapshot: %w", err)
	}

	var fresh []string
	for _, id := range snap.IDs() {
		if _, ok := w.processed[id]; !ok {
			fresh = append(fresh, id)
		}
	}

	if len(fresh) > 0 && w.firstGrowth.IsZero() {
		w.firstGrowth = time.Now()
	}

	for _, id := range fresh {
		if err := w.process(ctx, snap, id); err != nil {
			return err
		}
	}

	total := snap.Len()
	w.metrics.RegistryNodes.Set(float64(total))
	w.metrics.CachedNodes.Set(float64(w.cache.Len()))
	if total != w.lastTotal && total > 0 {
		var elapsed time.Duration
		if !w.firstGrowth.IsZero() {
			elapsed = time.Since(w.firstGrowth)
		}
		log.Info().
			Str("event", "registry_progress").
			Int("nodes", total).
			Int("cached", w.cache.Len()).
			Str("elapsed", elapsed.Round(100*time.Millisecond).String()).
			Msg("node metadata collected")
		w.lastTotal = total
	}

	if len(fresh) == 0 && !w.cache.IsReady() {
		w.cache.MarkReady()
		log.Info().
			Str("event", "cache_ready").
			Int("cached", w.cache.Len()).
			Msg("object_info cache ready")
	}

	return nil
}

// process extracts one node. A failed extraction is recorded and never retried; only
// cancellation of ctx is returned.
func (w *Watcher) process(ctx context.Context, snap *nodes.Snapshot, id string) error {
	d, ok := snap.Descriptor(id)
	if !ok {
		return fmt.Errorf("node %s vanished from snapshot", id)
	}

	m, err := w.extractor.Extract(ctx, id, d, snap.DisplayName(id))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.metrics.ExtractionFailures.Inc()
		log.Error().
			Str("event", "extraction_failed").
			Str("node", id).
			Err(err).
			Msg("failed to extract node metadata")
		w.cache.MarkFailed(id)
		w.processed[id] = struct{}{}

		return nil
	}

	w.cache.Put(id, m)
	w.processed[id] = struct{}{}
	log.Debug().
		Str("event", "node_cached").
		Str("node", id).
		Msg("node metadata cached")

	return nil
}
