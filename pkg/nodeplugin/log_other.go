//go:build !wasm

package nodeplugin

// Log is a no-op outside a WASM guest.
func Log(string) {}
