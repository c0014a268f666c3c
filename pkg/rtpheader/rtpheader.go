// Package rtpheader contains functions to encode and decode the fixed RTP header.
// Specification: https://datatracker.ietf.org/doc/html/rfc3550#section-5.1
package rtpheader

import (
	"fmt"

	"github.com/pion/rtp"
)

// Size is the size of the fixed RTP header.
const Size = 12

const rtpVersion = 2

// Fields are the fields of the fixed RTP header.
type Fields struct {
	Version        uint8
	Padding        bool
	Extension      bool
	CSRCCount      uint8
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

// Fill encodes the fixed header.
// The CSRC list is not supported, therefore CSRCCount is only written in the
// first byte and no identifier follows.
func Fill(f Fields) ([]byte, error) {
	if f.Version != rtpVersion {
		return nil, fmt.Errorf("unsupported RTP version %d", f.Version)
	}
	if f.PayloadType > 127 {
		return nil, fmt.Errorf("invalid payload type %d", f.PayloadType)
	}
	if f.CSRCCount > 15 {
		return nil, fmt.Errorf("invalid CSRC count %d", f.CSRCCount)
	}

	h := rtp.Header{
		Version:        f.Version,
		Padding:        f.Padding,
		Marker:         f.Marker,
		PayloadType:    f.PayloadType,
		SequenceNumber: f.SequenceNumber,
		Timestamp:      f.Timestamp,
		SSRC:           f.SSRC,
	}

	buf := make([]byte, Size)
	_, err := h.MarshalTo(buf)
	if err != nil {
		return nil, err
	}

	// pion derives X and CC from the extension and CSRC lists,
	// which are not carried here.
	if f.Extension {
		buf[0] |= 1 << 4
	}
	buf[0] |= f.CSRCCount

	return buf, nil
}

// Parse decodes the fixed header.
// Only the first 12 bytes are inspected.
func Parse(buf []byte) (Fields, error) {
	if len(buf) < Size {
		return Fields{}, fmt.Errorf("buffer is too short (%d bytes)", len(buf))
	}

	// decode a copy without X and CC, so that pion does not look for
	// CSRC identifiers and extension headers that are not there.
	var tmp [Size]byte
	copy(tmp[:], buf[:Size])
	tmp[0] &^= 0x1F

	var h rtp.Header
	_, err := h.Unmarshal(tmp[:])
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		Version:        h.Version,
		Padding:        h.Padding,
		Extension:      (buf[0] & 0x10) != 0,
		CSRCCount:      buf[0] & 0x0F,
		Marker:         h.Marker,
		PayloadType:    h.PayloadType,
		SequenceNumber: h.SequenceNumber,
		Timestamp:      h.Timestamp,
		SSRC:           h.SSRC,
	}, nil
}
