package nodeplugin

// retained keeps buffers handed to the host reachable until the next Reset.
var retained [][]byte

// Reset releases every buffer allocated since the previous Reset.
// Exports call it before producing a new result.
func Reset() {
	for i := range retained {
		retained[i] = nil
	}
	retained = retained[:0]
}

// Alloc allocates n bytes that stay valid until the next Reset and returns their address.
func Alloc(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	buf := make([]byte, n)
	retained = append(retained, buf)

	return addressOf(buf)
}

// Free releases the memory at ptr.
// Currently a no-op; memory is released by Reset.
func Free(ptr uint32) {
	_ = ptr
}

// Retained reports the number of live allocations.
func Retained() int {
	return len(retained)
}
