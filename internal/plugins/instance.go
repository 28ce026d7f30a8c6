package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/tetratelabs/wazero/api"
)

// Required and optional exports of a node plugin module.
const (
	exportAlloc       = "Alloc"
	exportInputTypes  = "InputTypes"
	exportReturnTypes = "ReturnTypes"
	exportDisplayName = "DisplayName"
)

// wasmNode describes a node by calling its module's exports. Calls into one module are
// serialized.
type wasmNode struct {
	module  api.Module
	inputs  api.Function
	returns api.Function
	name    api.Function
	probes  map[nodes.Capability]api.Function
	caps    nodes.CapabilitySet
	mu      sync.Mutex
}

func newWASMNode(mod api.Module) (*wasmNode, error) {
	for _, name := range []string{exportAlloc, exportInputTypes, exportReturnTypes} {
		if mod.ExportedFunction(name) == nil {
			return nil, fmt.Errorf("plugin does not export %s function", name)
		}
	}

	n := &wasmNode{
		module:  mod,
		inputs:  mod.ExportedFunction(exportInputTypes),
		returns: mod.ExportedFunction(exportReturnTypes),
		name:    mod.ExportedFunction(exportDisplayName),
		probes:  make(map[nodes.Capability]api.Function),
	}
	for _, c := range nodes.AllCapabilities {
		if fn := mod.ExportedFunction(c.String()); fn != nil {
			n.probes[c] = fn
			n.caps = n.caps.With(c)
		}
	}

	return n, nil
}

func (n *wasmNode) call(ctx context.Context, fn api.Function) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return callExport(ctx, n.module, fn)
}

// InputTypes calls the InputTypes export.
func (n *wasmNode) InputTypes(ctx context.Context) (json.RawMessage, error) {
	data, err := n.call(ctx, n.inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exportInputTypes, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: invalid JSON", exportInputTypes)
	}

	return data, nil
}

// ReturnTypes calls the ReturnTypes export.
func (n *wasmNode) ReturnTypes(ctx context.Context) ([]string, error) {
	data, err := n.call(ctx, n.returns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exportReturnTypes, err)
	}

	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", exportReturnTypes, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s: %w", exportReturnTypes, errors.New("null output types"))
	}

	return out, nil
}

// Capabilities reports the capability exports found at load time.
func (n *wasmNode) Capabilities() nodes.CapabilitySet {
	return n.caps
}

// Probe calls the export named after c.
func (n *wasmNode) Probe(ctx context.Context, c nodes.Capability) (json.RawMessage, error) {
	fn, ok := n.probes[c]
	if !ok {
		return nil, fmt.Errorf("%s: %w", c, nodes.ErrCapabilityAbsent)
	}

	data, err := n.call(ctx, fn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: invalid JSON", c)
	}

	return data, nil
}

// displayName returns the DisplayName export's value, or "" when it is absent or fails.
func (n *wasmNode) displayName(ctx context.Context) string {
	if n.name == nil {
		return ""
	}

	data, err := n.call(ctx, n.name)
	if err != nil {
		return ""
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return ""
	}

	return name
}
