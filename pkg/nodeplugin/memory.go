package nodeplugin

import "unsafe"

// addressOf returns the linear memory address of buf.
//
//nolint:gosec // wasm32 addresses fit in 32 bits.
func addressOf(buf []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
}

// ReadBytes reads length bytes from WASM linear memory at ptr.
//
//nolint:gosec // allow unsafe pointer usage.
func ReadBytes(ptr, length uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

// WriteBytes writes data into WASM linear memory at ptr.
func WriteBytes(ptr uint32, data []byte) {
	copy(ReadBytes(ptr, uint32(len(data))), data)
}
