// Package rtph264 contains a RTP/H264 encoder.
package rtph264

import (
	"crypto/rand"
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

const (
	rtpVersion            = 2
	defaultPayloadMaxSize = 1438 // 1450 (datagram budget) - 12 (RTP header)

	// FU indicator + FU header
	fuHeaderSize = 2
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Encoder is a RTP/H264 encoder working in non-interleaved mode
// (packetization-mode=1) with single NAL unit and FU-A packets.
// Specification: https://datatracker.ietf.org/doc/html/rfc6184
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
	if e.PayloadMaxSize <= fuHeaderSize {
		return fmt.Errorf("payload size %d is too small", e.PayloadMaxSize)
	}

	e.sequenceNumber = *e.InitialSequenceNumber
	return nil
}

// EncodeAnnexB splits an Annex-B byte stream into NALUs and encodes them.
func (e *Encoder) EncodeAnnexB(buf []byte) ([]*rtp.Packet, error) {
	var au h264.AnnexB
	err := au.Unmarshal(buf)
	if err != nil {
		return nil, err
	}

	return e.Encode(au)
}

// Encode encodes an access unit into RTP/H264 packets.
// The marker bit is set on the last packet of the access unit.
func (e *Encoder) Encode(au [][]byte) ([]*rtp.Packet, error) {
	var ret []*rtp.Packet

	for i, nalu := range au {
		if len(nalu) == 0 {
			return nil, fmt.Errorf("empty NALU")
		}

		marker := i == len(au)-1

		if len(nalu) <= e.PayloadMaxSize {
			ret = append(ret, e.packet(nalu, marker))
		} else {
			ret = append(ret, e.fragment(nalu, marker)...)
		}
	}

	if ret == nil {
		return nil, fmt.Errorf("access unit is empty")
	}

	return ret, nil
}

func (e *Encoder) packet(payload []byte, marker bool) *rtp.Packet {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        rtpVersion,
			PayloadType:    e.PayloadType,
			SequenceNumber: e.sequenceNumber,
			SSRC:           *e.SSRC,
			Marker:         marker,
		},
		Payload: payload,
	}
	e.sequenceNumber++
	return pkt
}

func (e *Encoder) fragment(nalu []byte, marker bool) []*rtp.Packet {
	avail := e.PayloadMaxSize - fuHeaderSize
	indicator := (nalu[0] & 0xE0) | uint8(h264.NALUTypeFUA)
	typ := nalu[0] & 0x1F
	nalu = nalu[1:]

	var ret []*rtp.Packet
	start := true

	for len(nalu) > 0 {
		le := avail
		if le > len(nalu) {
			le = len(nalu)
		}
		end := le == len(nalu)

		header := typ
		if start {
			header |= 0x80
		}
		if end {
			header |= 0x40
		}

		payload := make([]byte, fuHeaderSize+le)
		payload[0] = indicator
		payload[1] = header
		copy(payload[fuHeaderSize:], nalu[:le])
		nalu = nalu[le:]

		ret = append(ret, e.packet(payload, end && marker))
		start = false
	}

	return ret
}
