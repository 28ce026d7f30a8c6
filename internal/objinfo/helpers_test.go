package objinfo

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/stretchr/testify/require"
)

// funcDescriptor is a descriptor built from closures. Nil closures fall back to an empty
// schema and an empty output list.
type funcDescriptor struct {
	inputs  func(ctx context.Context) (json.RawMessage, error)
	outputs func(ctx context.Context) ([]string, error)
	caps    nodes.CapabilitySet
	probe   func(ctx context.Context, c nodes.Capability) (json.RawMessage, error)
	calls   atomic.Int32
}

func (d *funcDescriptor) InputTypes(ctx context.Context) (json.RawMessage, error) {
	d.calls.Add(1)
	if d.inputs == nil {
		return json.RawMessage(`{}`), nil
	}

	return d.inputs(ctx)
}

func (d *funcDescriptor) ReturnTypes(ctx context.Context) ([]string, error) {
	if d.outputs == nil {
		return []string{}, nil
	}

	return d.outputs(ctx)
}

func (d *funcDescriptor) Capabilities() nodes.CapabilitySet {
	return d.caps
}

func (d *funcDescriptor) Probe(ctx context.Context, c nodes.Capability) (json.RawMessage, error) {
	if d.probe == nil {
		return nil, nodes.ErrCapabilityAbsent
	}

	return d.probe(ctx, c)
}

// failingOutputs returns a descriptor whose ReturnTypes accessor fails.
func failingOutputs() *funcDescriptor {
	return &funcDescriptor{
		outputs: func(context.Context) ([]string, error) {
			return nil, errors.New("RETURN_TYPES raised")
		},
	}
}

func newAvailableRegistry(t *testing.T) *nodes.Registry {
	t.Helper()
	r := nodes.NewRegistry()
	r.MarkAvailable()

	return r
}

func register(t *testing.T, r *nodes.Registry, id string, d nodes.Descriptor) {
	t.Helper()
	require.NoError(t, r.Register(id, d, ""))
}

func staticNode(t *testing.T, inputs string, outputs ...string) *nodes.Static {
	t.Helper()
	if outputs == nil {
		outputs = []string{}
	}

	return nodes.NewStatic(json.RawMessage(inputs), outputs)
}
