//go:build wasm

package nodeplugin

//go:wasmimport env log_debug
func logDebug(ptr, length uint32)

// Log sends a debug message to the host log.
func Log(msg string) {
	if msg == "" {
		return
	}
	data := []byte(msg)
	logDebug(addressOf(data), uint32(len(data)))
}
