package jpeg

import (
	"fmt"
)

// QuantizationTable is a DQT quantization table.
type QuantizationTable struct {
	ID uint8

	// 0 means 8-bit entries (64 bytes), 1 means 16-bit entries (128 bytes).
	Precision uint8

	Data []byte
}

// DefineQuantizationTable is a DQT marker.
type DefineQuantizationTable struct {
	Tables []QuantizationTable
}

// Unmarshal decodes the marker.
func (m *DefineQuantizationTable) Unmarshal(buf []byte) error {
	for len(buf) != 0 {
		id := buf[0] & 0x0F
		precision := buf[0] >> 4
		buf = buf[1:]

		var size int
		switch precision {
		case 0:
			size = 64

		case 1:
			size = 128

		default:
			return fmt.Errorf("precision %d is not supported", precision)
		}

		if len(buf) < size {
			return fmt.Errorf("quantization table is too short")
		}

		m.Tables = append(m.Tables, QuantizationTable{
			ID:        id,
			Precision: precision,
			Data:      buf[:size],
		})
		buf = buf[size:]
	}

	return nil
}

// Marshal encodes the marker.
func (m DefineQuantizationTable) Marshal(buf []byte) []byte {
	buf = append(buf, []byte{0xFF, MarkerDefineQuantizationTable}...)

	s := 2
	for _, t := range m.Tables {
		s += 1 + len(t.Data)
	}
	buf = append(buf, []byte{byte(s >> 8), byte(s)}...)

	for _, t := range m.Tables {
		buf = append(buf, (t.Precision<<4)|t.ID)
		buf = append(buf, t.Data...)
	}

	return buf
}
