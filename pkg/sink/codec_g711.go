package sink

import (
	"github.com/pion/sdp/v3"

	"github.com/bluenviron/camrtsp/pkg/format/rtpsimpleaudio"
)

// static payload types of G711.
const (
	payloadTypePCMU = 0
	payloadTypePCMA = 8
)

// G711 is the G711 codec, in its PCMU and PCMA variants.
type G711 struct {
	// use mu-law (PCMU) instead of A-law (PCMA).
	MULaw bool

	enc *rtpsimpleaudio.Encoder
}

// Name implements Codec.
func (c *G711) Name() string {
	if c.MULaw {
		return "PCMU"
	}
	return "PCMA"
}

// MediaType implements Codec.
func (c *G711) MediaType() string {
	return "audio"
}

// ClockRate implements Codec.
func (c *G711) ClockRate() int {
	return 8000
}

// PayloadType implements Codec.
func (c *G711) PayloadType(_ int) uint8 {
	if c.MULaw {
		return payloadTypePCMU
	}
	return payloadTypePCMA
}

// RTPMap implements Codec.
func (c *G711) RTPMap() string {
	return c.Name() + "/8000"
}

// FMTP implements Codec.
func (c *G711) FMTP() map[string]string {
	return nil
}

// Attributes implements Codec.
func (c *G711) Attributes() []sdp.Attribute {
	return []sdp.Attribute{{Key: "ptime", Value: "20"}}
}

// InitExtra implements Codec.
func (c *G711) InitExtra(s *Sink) error {
	ssrc := s.SSRC()
	seq := s.SequenceNumber()

	c.enc = &rtpsimpleaudio.Encoder{
		PayloadType:           s.PayloadType(),
		SSRC:                  &ssrc,
		InitialSequenceNumber: &seq,
	}
	return c.enc.Init()
}

// TeardownExtra implements Codec.
func (c *G711) TeardownExtra(_ *Sink) {
	c.enc = nil
}

// SendFrame implements Codec.
func (c *G711) SendFrame(s *Sink, f *Frame, w PacketWriter) error {
	if c.enc == nil {
		return errNotOpen(c.Name())
	}

	pkts, err := c.enc.Encode(f.Data)
	if err != nil {
		return err
	}

	// one sample per byte
	ts := f.Timestamp
	for _, pkt := range pkts {
		err = s.writePacket(pkt, ts, w)
		if err != nil {
			return err
		}
		ts += uint32(len(pkt.Payload))
	}

	s.frameWritten()
	return nil
}
