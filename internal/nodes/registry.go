package nodes

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnavailable is returned by Snapshot until the host has initialised the registry.
	ErrUnavailable = errors.New("node registry not available")
	// ErrDuplicate is returned when an identifier is registered twice.
	ErrDuplicate = errors.New("node already registered")
)

// Registry maps node identifiers to descriptors and display names.
// Entries are only ever added.
type Registry struct {
	classes      map[string]Descriptor
	displayNames map[string]string
	available    bool
	mu           sync.RWMutex
}

// NewRegistry creates an empty, unavailable registry.
func NewRegistry() *Registry {
	return &Registry{
		classes:      make(map[string]Descriptor),
		displayNames: make(map[string]string),
	}
}

// MarkAvailable makes the registry visible to readers.
func (r *Registry) MarkAvailable() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.available = true
}

// Register adds a node. An empty display name leaves the node without a display-name entry.
func (r *Registry) Register(id string, d Descriptor, displayName string) error {
	if id == "" {
		return errors.New("node identifier is required")
	}
	if d == nil {
		return fmt.Errorf("node %s: nil descriptor", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.classes[id]; ok {
		return fmt.Errorf("node %s: %w", id, ErrDuplicate)
	}
	r.classes[id] = d
	if displayName != "" {
		r.displayNames[id] = displayName
	}

	return nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.classes[id]
	return ok
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.classes)
}

// Snapshot returns a point-in-time copy of the registry.
func (r *Registry) Snapshot() (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.available {
		return nil, ErrUnavailable
	}

	s := &Snapshot{
		classes:      make(map[string]Descriptor, len(r.classes)),
		displayNames: make(map[string]string, len(r.displayNames)),
	}
	for id, d := range r.classes {
		s.classes[id] = d
	}
	for id, name := range r.displayNames {
		s.displayNames[id] = name
	}

	return s, nil
}

// Snapshot is an immutable view of the registry at one instant.
type Snapshot struct {
	classes      map[string]Descriptor
	displayNames map[string]string
}

// IDs returns the identifiers in the snapshot in no particular order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.classes))
	for id := range s.classes {
		ids = append(ids, id)
	}

	return ids
}

// Descriptor returns the descriptor registered under id.
func (s *Snapshot) Descriptor(id string) (Descriptor, bool) {
	d, ok := s.classes[id]
	return d, ok
}

// DisplayName returns the display name for id, or id itself when none was registered.
func (s *Snapshot) DisplayName(id string) string {
	if name, ok := s.displayNames[id]; ok {
		return name
	}

	return id
}

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.classes)
}
