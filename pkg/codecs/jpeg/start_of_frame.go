package jpeg

import (
	"fmt"
)

// StartOfFrame is a baseline SOF0 marker.
type StartOfFrame struct {
	// 0 for 4:2:2 sampling, 1 for 4:2:0 sampling.
	Type uint8

	Width  int
	Height int

	QuantizationTableCount uint8 // write only
}

// Unmarshal decodes the marker.
func (m *StartOfFrame) Unmarshal(buf []byte) error {
	if len(buf) != 15 {
		return fmt.Errorf("unsupported SOF size of %d", len(buf))
	}

	precision := buf[0]
	if precision != 8 {
		return fmt.Errorf("precision %d is not supported", precision)
	}

	m.Height = int(buf[1])<<8 | int(buf[2])
	m.Width = int(buf[3])<<8 | int(buf[4])

	components := buf[5]
	if components != 3 {
		return fmt.Errorf("number of components = %d is not supported", components)
	}

	switch samp0 := buf[7]; samp0 {
	case 0x21:
		m.Type = 0

	case 0x22:
		m.Type = 1

	default:
		return fmt.Errorf("samp0 %x is not supported", samp0)
	}

	if buf[10] != 0x11 || buf[13] != 0x11 {
		return fmt.Errorf("chroma sampling %x %x is not supported", buf[10], buf[13])
	}

	return nil
}

// Marshal encodes the marker.
func (m StartOfFrame) Marshal(buf []byte) []byte {
	buf = append(buf, []byte{0xFF, MarkerStartOfFrame0}...)
	buf = append(buf, []byte{0, 17}...)                               // length
	buf = append(buf, []byte{8}...)                                   // precision
	buf = append(buf, []byte{byte(m.Height >> 8), byte(m.Height)}...) // height
	buf = append(buf, []byte{byte(m.Width >> 8), byte(m.Width)}...)   // width
	buf = append(buf, []byte{3}...)                                   // components

	if m.Type == 0 {
		buf = append(buf, []byte{0x00, 0x21, 0}...)
	} else {
		buf = append(buf, []byte{0x00, 0x22, 0}...)
	}

	var chromaTable byte
	if m.QuantizationTableCount == 2 {
		chromaTable = 1
	}

	buf = append(buf, []byte{1, 0x11, chromaTable}...)
	buf = append(buf, []byte{2, 0x11, chromaTable}...)
	return buf
}
