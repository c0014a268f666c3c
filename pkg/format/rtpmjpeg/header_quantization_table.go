package rtpmjpeg

import (
	"fmt"
)

// quantization table header, present in the first fragment when Q >= 128.
// Specification: https://datatracker.ietf.org/doc/html/rfc2435#section-3.1.8
type headerQuantizationTable struct {
	MBZ uint8

	// bit i is set when table i has 16-bit entries.
	Precision uint8

	Tables [][]byte
}

func (h *headerQuantizationTable) unmarshal(byts []byte) (int, error) {
	if len(byts) < 4 {
		return 0, fmt.Errorf("buffer is too short")
	}

	h.MBZ = byts[0]
	h.Precision = byts[1]
	length := int(byts[2])<<8 | int(byts[3])

	if (len(byts) - 4) < length {
		return 0, fmt.Errorf("buffer is too short")
	}

	h.Tables = nil
	n := 0

	for i := 0; n < length; i++ {
		size := 64
		if i < 8 && ((h.Precision>>i)&0x01) != 0 {
			size = 128
		}

		if (length - n) < size {
			return 0, fmt.Errorf("table length %d is invalid", length)
		}

		h.Tables = append(h.Tables, byts[4+n:4+n+size])
		n += size
	}

	return 4 + length, nil
}

func (h headerQuantizationTable) marshal(byts []byte) []byte {
	byts = append(byts, h.MBZ)
	byts = append(byts, h.Precision)

	l := 0
	for _, t := range h.Tables {
		l += len(t)
	}
	byts = append(byts, []byte{byte(l >> 8), byte(l)}...)

	for _, t := range h.Tables {
		byts = append(byts, t...)
	}

	return byts
}
