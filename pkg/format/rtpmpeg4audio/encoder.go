// Package rtpmpeg4audio contains a RTP/MPEG-4 audio encoder (AAC-hbr).
package rtpmpeg4audio

import (
	"crypto/rand"
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/mediacommon/v2/pkg/bits"
)

const (
	rtpVersion            = 2
	defaultPayloadMaxSize = 1438 // 1450 (datagram budget) - 12 (RTP header)

	// AAC-hbr defaults.
	defaultSizeLength  = 13
	defaultIndexLength = 3
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Encoder is a RTP/MPEG-4 audio encoder that writes one access unit per packet.
// Access units bigger than the payload budget are fragmented.
// Specification: https://datatracker.ietf.org/doc/html/rfc3640
type Encoder struct {
	// payload type of packets.
	PayloadType uint8

	// The number of bits in which the AU-size field is encoded in the AU-header (optional).
	// It defaults to 13.
	SizeLength int

	// The number of bits in which the AU-Index is encoded in the AU-header (optional).
	// It defaults to 3.
	IndexLength int

	// SSRC of packets (optional).
	// It defaults to a random value.
	SSRC *uint32

	// initial sequence number of packets (optional).
	// It defaults to a random value.
	InitialSequenceNumber *uint16

	// maximum size of packet payloads (optional).
	// It defaults to 1438.
	PayloadMaxSize int

	sequenceNumber   uint16
	auHeadersLenBits int
	auHeadersLen     int
}

// Init initializes the encoder.
func (e *Encoder) Init() error {
	if e.SSRC == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		e.SSRC = &v
	}
	if e.InitialSequenceNumber == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		v2 := uint16(v)
		e.InitialSequenceNumber = &v2
	}
	if e.PayloadMaxSize == 0 {
		e.PayloadMaxSize = defaultPayloadMaxSize
	}
	if e.SizeLength == 0 {
		e.SizeLength = defaultSizeLength
	}
	if e.IndexLength == 0 {
		e.IndexLength = defaultIndexLength
	}

	e.auHeadersLenBits = e.SizeLength + e.IndexLength
	e.auHeadersLen = e.auHeadersLenBits / 8
	if (e.auHeadersLenBits % 8) != 0 {
		e.auHeadersLen++
	}

	if e.PayloadMaxSize <= 2+e.auHeadersLen {
		return fmt.Errorf("payload size %d is too small", e.PayloadMaxSize)
	}

	e.sequenceNumber = *e.InitialSequenceNumber
	return nil
}

// Encode encodes an access unit into RTP packets.
func (e *Encoder) Encode(au []byte) ([]*rtp.Packet, error) {
	if len(au) == 0 {
		return nil, fmt.Errorf("access unit is empty")
	}
	if uint64(len(au)) >= uint64(1)<<e.SizeLength {
		return nil, fmt.Errorf("access unit is too big (%d bytes)", len(au))
	}

	avail := e.PayloadMaxSize - 2 - e.auHeadersLen
	auSize := len(au)
	var ret []*rtp.Packet

	for len(au) > 0 {
		le := avail
		if le > len(au) {
			le = len(au)
		}

		payload := make([]byte, 2+e.auHeadersLen+le)

		// AU-headers-length
		payload[0] = byte(e.auHeadersLenBits >> 8)
		payload[1] = byte(e.auHeadersLenBits)

		// AU-header
		pos := 0
		bits.WriteBitsUnsafe(payload[2:], &pos, uint64(auSize), e.SizeLength)
		bits.WriteBitsUnsafe(payload[2:], &pos, 0, e.IndexLength)

		copy(payload[2+e.auHeadersLen:], au[:le])
		au = au[le:]

		ret = append(ret, &rtp.Packet{
			Header: rtp.Header{
				Version:        rtpVersion,
				PayloadType:    e.PayloadType,
				SequenceNumber: e.sequenceNumber,
				SSRC:           *e.SSRC,
				Marker:         len(au) == 0,
			},
			Payload: payload,
		})
		e.sequenceNumber++
	}

	return ret, nil
}
