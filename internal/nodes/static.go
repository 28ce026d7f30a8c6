package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCapabilityAbsent is returned when probing a capability a descriptor does not expose.
var ErrCapabilityAbsent = errors.New("capability not exposed by descriptor")

// Static is a descriptor whose metadata is fixed at construction time.
type Static struct {
	Inputs  json.RawMessage
	Outputs []string
	values  map[Capability]json.RawMessage
}

// NewStatic returns a static descriptor with the given input schema and output types.
func NewStatic(inputs json.RawMessage, outputs []string) *Static {
	return &Static{
		Inputs:  inputs,
		Outputs: outputs,
		values:  make(map[Capability]json.RawMessage),
	}
}

// Set stores the JSON encoding of v as the value of capability c.
func (s *Static) Set(c Capability, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	s.values[c] = raw

	return nil
}

// InputTypes returns the input schema.
func (s *Static) InputTypes(context.Context) (json.RawMessage, error) {
	if s.Inputs == nil {
		return nil, errors.New("input schema not defined")
	}

	return s.Inputs, nil
}

// ReturnTypes returns the output type labels.
func (s *Static) ReturnTypes(context.Context) ([]string, error) {
	if s.Outputs == nil {
		return nil, errors.New("output types not defined")
	}

	return s.Outputs, nil
}

// Capabilities reports the capabilities that were set.
func (s *Static) Capabilities() CapabilitySet {
	var set CapabilitySet
	for c := range s.values {
		set = set.With(c)
	}

	return set
}

// Probe returns the stored value of c.
func (s *Static) Probe(_ context.Context, c Capability) (json.RawMessage, error) {
	raw, ok := s.values[c]
	if !ok {
		return nil, fmt.Errorf("%s: %w", c, ErrCapabilityAbsent)
	}

	return raw, nil
}
