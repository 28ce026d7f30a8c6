package plugins

import "sort"

// Plugin describes one loaded plugin file.
type Plugin struct {
	ID   string
	File string
	Kind string
}

// Loaded returns the plugins loaded so far, sorted by node id.
func (l *Loader) Loaded() []Plugin {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Plugin, 0, len(l.loaded))
	for _, p := range l.loaded {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Skipped returns the files that were not loaded because their node was already
// registered, sorted by path.
func (l *Loader) Skipped() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.skipped))
	for path := range l.skipped {
		out = append(out, path)
	}
	sort.Strings(out)

	return out
}
