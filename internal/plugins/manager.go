// Package plugins loads node plugins from a directory and registers them in the node
// registry. WASM modules run in a wazero runtime; YAML manifests describe static nodes.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Plugin kinds.
const (
	KindWASM     = "wasm"
	KindManifest = "manifest"
)

// Loader loads plugin files into a node registry. Loading is additive: a file that was
// loaded once is never loaded again and registered nodes are never replaced.
type Loader struct {
	//nolint:containedctx // Context is stored in the struct intentionally to allow reuse across plugin operations.
	ctx      context.Context
	registry *nodes.Registry
	runtime  wazero.Runtime
	loaded   map[string]Plugin
	skipped  map[string]struct{}
	mu       sync.Mutex
}

// NewLoader returns a Loader registering into reg.
func NewLoader(ctx context.Context, reg *nodes.Registry) *Loader {
	return &Loader{
		ctx:      ctx,
		registry: reg,
		loaded:   make(map[string]Plugin),
		skipped:  make(map[string]struct{}),
	}
}

// LoadAll loads every plugin file in dir that was not seen before and returns the number
// of nodes it registered. Files that fail to load are logged and skipped; files naming an
// already registered node are remembered and not read again.
func (l *Loader) LoadAll(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureRuntime(); err != nil {
		return 0, err
	}

	count := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		path := filepath.Join(dir, f.Name())
		if _, ok := l.loaded[path]; ok {
			continue
		}
		if _, ok := l.skipped[path]; ok {
			continue
		}

		var p Plugin
		switch strings.ToLower(filepath.Ext(f.Name())) {
		case ".wasm":
			p, err = l.loadWASM(path)
		case ".yaml", ".yml":
			p, err = l.loadManifest(path)
		default:
			continue
		}

		if errors.Is(err, nodes.ErrDuplicate) {
			l.skipped[path] = struct{}{}
			log.Warn().
				Str("event", "plugin_duplicate").
				Str("file", f.Name()).
				Str("node", p.ID).
				Msg("node already registered, plugin skipped")
			continue
		}
		if err != nil {
			log.Error().
				Str("event", "plugin_load_failed").
				Str("file", f.Name()).
				Err(err).
				Msg("failed to load plugin")
			continue
		}

		l.loaded[path] = p
		count++
		log.Info().
			Str("event", "plugin_loaded").
			Str("node", p.ID).
			Str("kind", p.Kind).
			Msg("loaded plugin")
	}

	return count, nil
}

// ensureRuntime creates the shared wazero runtime and its host module on first use.
func (l *Loader) ensureRuntime() error {
	if l.runtime != nil {
		return nil
	}

	// Guest calls stop when their context is done, which also closes the module.
	rt := wazero.NewRuntimeWithConfig(l.ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(l.ctx, rt)
	if err := newHostFunctions(rt).register(l.ctx); err != nil {
		_ = rt.Close(l.ctx)
		return err
	}
	l.runtime = rt

	return nil
}

func (l *Loader) loadWASM(path string) (Plugin, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p := Plugin{ID: id, File: path, Kind: KindWASM}
	if l.registry.Has(id) {
		return p, nodes.ErrDuplicate
	}

	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read plugin file: %w", err)
	}

	compiled, err := l.runtime.CompileModule(l.ctx, wasmBytes)
	if err != nil {
		return p, fmt.Errorf("compile plugin module: %w", err)
	}

	// Reactor modules export _initialize; _start would run main and exit.
	cfg := wazero.NewModuleConfig().
		WithName(id).
		WithStartFunctions("_initialize")

	module, err := l.runtime.InstantiateModule(l.ctx, compiled, cfg)
	if err != nil {
		return p, fmt.Errorf("instantiate plugin module: %w", err)
	}

	node, err := newWASMNode(module)
	if err != nil {
		_ = module.Close(l.ctx)
		return p, err
	}

	if err := l.registry.Register(id, node, node.displayName(l.ctx)); err != nil {
		_ = module.Close(l.ctx)
		return p, err
	}

	return p, nil
}

func (l *Loader) loadManifest(path string) (Plugin, error) {
	p := Plugin{File: path, Kind: KindManifest}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return p, err
	}
	p.ID = m.Name
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	d, err := m.Descriptor()
	if err != nil {
		return p, err
	}

	return p, l.registry.Register(p.ID, d, m.DisplayName)
}

// Close closes the underlying WASM runtime and every module instantiated in it.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.runtime == nil {
		return nil
	}
	err := l.runtime.Close(l.ctx)
	l.runtime = nil

	return err
}
