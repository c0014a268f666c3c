// Package rtpmpeg4video contains a RTP/MPEG-4 Video encoder.
package rtpmpeg4video

import (
	"crypto/rand"
	"fmt"

	"github.com/pion/rtp"
)

const (
	rtpVersion            = 2
	defaultPayloadMaxSize = 1438 // 1450 (datagram budget) - 12 (RTP header)
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Encoder is a RTP/MPEG-4 Video encoder.
// The elementary stream is split across packets and the marker is set on the last one.
// Specification: https://datatracker.ietf.org/doc/html/rfc6416#section-5
type Encoder struct {
	// payload type of packets.
	PayloadType uint8

	// SSRC of packets (optional).
	// It defaults to a random value.
	SSRC *uint32

	// initial sequence number of packets (optional).
	// It defaults to a random value.
	InitialSequenceNumber *uint16

	// maximum size of packet payloads (optional).
	// It defaults to 1438.
	PayloadMaxSize int

	sequenceNumber uint16
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

	e.sequenceNumber = *e.InitialSequenceNumber
	return nil
}

// Encode encodes a frame into RTP packets.
func (e *Encoder) Encode(frame []byte) ([]*rtp.Packet, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("frame is empty")
	}

	n := len(frame) / e.PayloadMaxSize
	if (len(frame) % e.PayloadMaxSize) != 0 {
		n++
	}

	ret := make([]*rtp.Packet, n)

	for i := range ret {
		le := e.PayloadMaxSize
		if i == n-1 {
			le = len(frame)
		}

		ret[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        rtpVersion,
				PayloadType:    e.PayloadType,
				SequenceNumber: e.sequenceNumber,
				SSRC:           *e.SSRC,
				Marker:         i == n-1,
			},
			Payload: frame[:le],
		}
		frame = frame[le:]
		e.sequenceNumber++
	}

	return ret, nil
}
