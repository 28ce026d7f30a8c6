// Package nodes holds the host's node registry: the set of registered plugin classes
// and the descriptors through which their metadata is read.
package nodes

import (
	"context"
	"encoding/json"
	"strings"
)

// Capability names one optional piece of metadata a descriptor may expose.
type Capability uint16

// Optional descriptor capabilities.
const (
	OutputIsList Capability = 1 << iota
	ReturnNames
	OutputNode
	OutputTooltips
	Deprecated
	Experimental
	Description
	Category
	OriginModule
)

// AllCapabilities lists every optional capability in probe order.
var AllCapabilities = []Capability{
	OutputIsList,
	ReturnNames,
	OutputNode,
	OutputTooltips,
	Deprecated,
	Experimental,
	Description,
	Category,
	OriginModule,
}

var capabilityNames = map[Capability]string{
	OutputIsList:   "OutputIsList",
	ReturnNames:    "ReturnNames",
	OutputNode:     "OutputNode",
	OutputTooltips: "OutputTooltips",
	Deprecated:     "Deprecated",
	Experimental:   "Experimental",
	Description:    "Description",
	Category:       "Category",
	OriginModule:   "OriginModule",
}

// String returns the export name used for the capability.
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}

	return "Unknown"
}

// CapabilitySet is a bit set of capabilities.
type CapabilitySet uint16

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}

	return s
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// With returns a copy of the set that includes c.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | CapabilitySet(c)
}

// String lists the capabilities in the set.
func (s CapabilitySet) String() string {
	names := make([]string, 0, len(AllCapabilities))
	for _, c := range AllCapabilities {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}

	return strings.Join(names, ",")
}

// Descriptor describes one registered plugin class.
//
// InputTypes and ReturnTypes are required. Every other piece of metadata is exposed as an
// optional capability: Capabilities reports which ones are present and Probe returns the
// JSON encoded value of one of them.
type Descriptor interface {
	InputTypes(ctx context.Context) (json.RawMessage, error)
	ReturnTypes(ctx context.Context) ([]string, error)
	Capabilities() CapabilitySet
	Probe(ctx context.Context, c Capability) (json.RawMessage, error)
}
