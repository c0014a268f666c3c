// Package rtpsimpleaudio contains a RTP encoder for G711 and other sample-based audio codecs.
package rtpsimpleaudio

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

// Encoder is a RTP/simple audio encoder.
// Specification: https://datatracker.ietf.org/doc/html/rfc3551
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

// Encode encodes an audio frame into RTP packets.
// Frames that exceed the payload budget are split into consecutive packets.
func (e *Encoder) Encode(frame []byte) ([]*rtp.Packet, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("frame is empty")
	}

	var ret []*rtp.Packet

	for len(frame) > 0 {
		le := e.PayloadMaxSize
		if le > len(frame) {
			le = len(frame)
		}

		ret = append(ret, &rtp.Packet{
			Header: rtp.Header{
				Version:        rtpVersion,
				PayloadType:    e.PayloadType,
				SequenceNumber: e.sequenceNumber,
				SSRC:           *e.SSRC,
				Marker:         false,
			},
			Payload: frame[:le],
		})
		frame = frame[le:]
		e.sequenceNumber++
	}

	return ret, nil
}
