package nodeplugin

import (
	"encoding/json"
	"errors"
)

// ErrInvalidJSON is returned when a raw export is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON document")

// Encode returns the JSON document an export hands to the host.
func Encode(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, ErrInvalidJSON
		}
		return raw, nil
	}

	return json.Marshal(v)
}

// Export encodes v as JSON, places it in guest memory and returns the packed result.
// It returns 0 when v cannot be encoded; the host treats that as a failed call.
func Export(v any) uint64 {
	Reset()

	data, err := Encode(v)
	if err != nil {
		Log("encode export: " + err.Error())
		return 0
	}

	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return PackResult(ptr, uint32(len(data)))
}
