package nodeplugin

import "testing"

// TestPackResult verifies that PackResult combines pointer and length into a uint64 value.
func TestPackResult(t *testing.T) {
	highIn := uint32(0xDEADBEEF)
	lowIn := uint32(0xFEEDFACE)
	combined := PackResult(highIn, lowIn)

	high, low := UnpackResult(combined)
	if high != highIn || low != lowIn {
		t.Errorf("expected high=0x%X low=0x%X, got high=0x%X low=0x%X", highIn, lowIn, high, low)
	}
}
