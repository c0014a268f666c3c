package jpeg

import (
	"fmt"
)

// StartOfScan is a SOS marker.
type StartOfScan struct{}

// Unmarshal decodes the marker.
func (m *StartOfScan) Unmarshal(buf []byte) error {
	if len(buf) != 10 {
		return fmt.Errorf("unsupported SOS size of %d", len(buf))
	}

	if buf[0] != 3 {
		return fmt.Errorf("number of components = %d is not supported", buf[0])
	}

	return nil
}

// Marshal encodes the marker.
func (m StartOfScan) Marshal(buf []byte) []byte {
	buf = append(buf, []byte{0xFF, MarkerStartOfScan}...)
	buf = append(buf, []byte{0, 12}...)    // length
	buf = append(buf, []byte{3}...)        // components
	buf = append(buf, []byte{0, 0}...)     // component 0
	buf = append(buf, []byte{1, 0x11}...)  // component 1
	buf = append(buf, []byte{2, 0x11}...)  // component 2
	buf = append(buf, []byte{0, 63, 0}...) // spectral selection, approximation
	return buf
}
