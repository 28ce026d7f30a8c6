package objinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andrei-cloud/go_nodehost/internal/nodes"
	"github.com/rs/zerolog/log"
)

// Extractor turns node descriptors into Metadata records.
type Extractor struct {
	timeout time.Duration
	metrics *Metrics
}

// NewExtractor returns an extractor that abandons a single extraction after timeout.
// A zero timeout disables the bound.
func NewExtractor(timeout time.Duration, m *Metrics) *Extractor {
	if m == nil {
		m = NewMetrics(nil)
	}

	return &Extractor{timeout: timeout, metrics: m}
}

type extractResult struct {
	meta Metadata
	err  error
}

// Extract reads the metadata of one node. Any failure, including a panic inside the
// descriptor, is returned as an *ExtractionError and no partial record is produced.
func (e *Extractor) Extract(
	ctx context.Context,
	id string,
	d nodes.Descriptor,
	displayName string,
) (Metadata, error) {
	start := time.Now()
	defer func() {
		e.metrics.ExtractDuration.Observe(time.Since(start).Seconds())
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// buffered so an abandoned extraction can still finish and exit.
	done := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extractResult{err: fmt.Errorf("descriptor panicked: %v", r)}
			}
		}()
		m, err := extract(ctx, id, d, displayName)
		done <- extractResult{meta: m, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return Metadata{}, &ExtractionError{ID: id, Err: res.err}
		}

		return res.meta, nil
	case <-ctx.Done():
		return Metadata{}, &ExtractionError{ID: id, Err: ctx.Err()}
	}
}

// ExtractAll extracts every node in snap. Failed nodes are logged and left out.
func (e *Extractor) ExtractAll(ctx context.Context, snap *nodes.Snapshot) map[string]Metadata {
	out := make(map[string]Metadata, snap.Len())
	for _, id := range snap.IDs() {
		if m, ok := e.extractFrom(ctx, snap, id); ok {
			out[id] = m
		}
	}

	return out
}

// extractFrom extracts one node from snap while serving a request, logging a failure.
// Failures count once per request, not once per node.
func (e *Extractor) extractFrom(ctx context.Context, snap *nodes.Snapshot, id string) (Metadata, bool) {
	d, ok := snap.Descriptor(id)
	if !ok {
		return Metadata{}, false
	}
	m, err := e.Extract(ctx, id, d, snap.DisplayName(id))
	if err != nil {
		e.metrics.FallbackFailures.Inc()
		log.Error().
			Str("event", "extraction_failed").
			Str("node", id).
			Err(err).
			Msg("failed to extract node metadata")

		return Metadata{}, false
	}

	return m, true
}

func extract(ctx context.Context, id string, d nodes.Descriptor, displayName string) (Metadata, error) {
	if id == "" {
		return Metadata{}, errors.New("missing node identifier")
	}
	if d == nil {
		return Metadata{}, errors.New("missing descriptor")
	}

	rawInput, err := d.InputTypes(ctx)
	if err != nil {
		return Metadata{}, fmt.Errorf("input types: %w", err)
	}
	input, err := ParseInputSchema(rawInput)
	if err != nil {
		return Metadata{}, err
	}

	returnTypes, err := d.ReturnTypes(ctx)
	if err != nil {
		return Metadata{}, fmt.Errorf("return types: %w", err)
	}
	output := make([]string, len(returnTypes))
	copy(output, returnTypes)

	if displayName == "" {
		displayName = id
	}
	m := Metadata{
		Name:         id,
		DisplayName:  displayName,
		Description:  DefaultDescription,
		Category:     DefaultCategory,
		OriginModule: DefaultOriginModule,
		Input:        input,
		InputOrder:   input.Order(),
		Output:       output,
		OutputIsList: make([]bool, len(output)),
		OutputName:   append([]string{}, output...),
	}

	caps := d.Capabilities()

	if err := probe(ctx, d, caps, nodes.OutputIsList, &m.OutputIsList); err != nil {
		return Metadata{}, err
	}
	if len(m.OutputIsList) != len(output) {
		return Metadata{}, fmt.Errorf(
			"output_is_list has %d entries, want %d", len(m.OutputIsList), len(output))
	}

	if err := probe(ctx, d, caps, nodes.ReturnNames, &m.OutputName); err != nil {
		return Metadata{}, err
	}
	if len(m.OutputName) != len(output) {
		return Metadata{}, fmt.Errorf(
			"output_name has %d entries, want %d", len(m.OutputName), len(output))
	}
	if m.OutputIsList == nil {
		m.OutputIsList = []bool{}
	}
	if m.OutputName == nil {
		m.OutputName = []string{}
	}

	if err := probe(ctx, d, caps, nodes.OutputNode, &m.OutputNode); err != nil {
		return Metadata{}, err
	}
	if err := probe(ctx, d, caps, nodes.OutputTooltips, &m.OutputTooltips); err != nil {
		return Metadata{}, err
	}
	if err := probe(ctx, d, caps, nodes.Deprecated, &m.Deprecated); err != nil {
		return Metadata{}, err
	}
	if err := probe(ctx, d, caps, nodes.Experimental, &m.Experimental); err != nil {
		return Metadata{}, err
	}
	if err := probe(ctx, d, caps, nodes.Description, &m.Description); err != nil {
		return Metadata{}, err
	}
	if err := probe(ctx, d, caps, nodes.Category, &m.Category); err != nil {
		return Metadata{}, err
	}
	if err := probe(ctx, d, caps, nodes.OriginModule, &m.OriginModule); err != nil {
		return Metadata{}, err
	}

	return m, nil
}

// probe decodes capability c into dst when the descriptor exposes it, leaving dst
// untouched otherwise.
func probe[T any](
	ctx context.Context,
	d nodes.Descriptor,
	caps nodes.CapabilitySet,
	c nodes.Capability,
	dst *T,
) error {
	if !caps.Has(c) {
		return nil
	}
	raw, err := d.Probe(ctx, c)
	if err != nil {
		return fmt.Errorf("probe %s: %w", c, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode %s: %w", c, err)
	}
	*dst = v

	return nil
}
