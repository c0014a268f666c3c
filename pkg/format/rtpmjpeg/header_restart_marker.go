package rtpmjpeg

import (
	"fmt"
)

// restart marker header, present when the type is between 64 and 127.
// Specification: https://datatracker.ietf.org/doc/html/rfc2435#section-3.1.7
type headerRestartMarker struct {
	Interval uint16
	First    bool
	Last     bool
	Count    uint16
}

func (h *headerRestartMarker) unmarshal(byts []byte) (int, error) {
	if len(byts) < 4 {
		return 0, fmt.Errorf("buffer is too short")
	}

	h.Interval = uint16(byts[0])<<8 | uint16(byts[1])
	h.First = (byts[2] >> 7) != 0
	h.Last = ((byts[2] >> 6) & 0x01) != 0
	h.Count = uint16(byts[2]&0x3F)<<8 | uint16(byts[3])

	return 4, nil
}

func (h headerRestartMarker) marshal(byts []byte) []byte {
	byts = append(byts, []byte{byte(h.Interval >> 8), byte(h.Interval)}...)

	b := byte(h.Count>>8) & 0x3F
	if h.First {
		b |= 1 << 7
	}
	if h.Last {
		b |= 1 << 6
	}

	return append(byts, []byte{b, byte(h.Count)}...)
}
