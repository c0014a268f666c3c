// Package rtpmjpeg contains a RTP/M-JPEG encoder.
package rtpmjpeg

import (
	"crypto/rand"
	"fmt"

	"github.com/pion/rtp"

	"github.com/bluenviron/camrtsp/pkg/codecs/jpeg"
)

const (
	rtpVersion            = 2
	defaultPayloadMaxSize = 1438 // 1450 (datagram budget) - 12 (RTP header)

	// PayloadType is the static payload type of JPEG.
	PayloadType = 26

	// tables are sent in-band in every frame.
	quantizationDynamic = 255

	// restart intervals are not aligned to fragments.
	restartCountAll = 0x3FFF

	maxFragmentOffset = 1<<24 - 1
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Encoder is a RTP/M-JPEG encoder.
// Specification: https://datatracker.ietf.org/doc/html/rfc2435
type Encoder struct {
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

// Encode encodes an image into RTP/M-JPEG packets.
// The marker bit is set on the last packet only.
func (e *Encoder) Encode(image []byte) ([]*rtp.Packet, error) {
	var h jpeg.Header
	err := h.Unmarshal(image)
	if err != nil {
		return nil, err
	}

	data := image[h.ScanOffset:]
	if len(data) > maxFragmentOffset {
		return nil, fmt.Errorf("image data is too big (%d bytes)", len(data))
	}

	jh := headerJPEG{
		TypeSpecific: 0,
		Type:         h.Type,
		Quantization: quantizationDynamic,
		Width:        h.Width,
		Height:       h.Height,
	}

	if h.RestartInterval != 0 {
		jh.Type += 64
	}

	var qth headerQuantizationTable
	for i, t := range h.QuantizationTables {
		if t.Precision != 0 {
			qth.Precision |= 1 << i
		}
		qth.Tables = append(qth.Tables, t.Data)
	}

	first := true
	offset := 0
	var ret []*rtp.Packet

	for {
		var buf []byte

		jh.FragmentOffset = uint32(offset)
		buf = jh.marshal(buf)

		if h.RestartInterval != 0 {
			buf = headerRestartMarker{
				Interval: h.RestartInterval,
				First:    true,
				Last:     true,
				Count:    restartCountAll,
			}.marshal(buf)
		}

		if first {
			first = false
			buf = qth.marshal(buf)
		}

		remaining := e.PayloadMaxSize - len(buf)
		if remaining <= 0 {
			return nil, fmt.Errorf("payload size %d is too small for headers", e.PayloadMaxSize)
		}

		if remaining > len(data) {
			remaining = len(data)
		}

		buf = append(buf, data[:remaining]...)
		data = data[remaining:]
		offset += remaining

		ret = append(ret, &rtp.Packet{
			Header: rtp.Header{
				Version:        rtpVersion,
				PayloadType:    PayloadType,
				SequenceNumber: e.sequenceNumber,
				SSRC:           *e.SSRC,
				Marker:         len(data) == 0,
			},
			Payload: buf,
		})
		e.sequenceNumber++

		if len(data) == 0 {
			break
		}
	}

	return ret, nil
}
