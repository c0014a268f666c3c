package sink

import (
	"strconv"

	"github.com/pion/sdp/v3"

	"github.com/bluenviron/camrtsp/pkg/format/rtpmjpeg"
)

// MJPEG is the Motion-JPEG codec.
type MJPEG struct {
	// frame rate, advertised in the SDP (optional).
	FPS int

	enc *rtpmjpeg.Encoder
}

// Name implements Codec.
func (c *MJPEG) Name() string {
	return "MJPEG"
}

// MediaType implements Codec.
func (c *MJPEG) MediaType() string {
	return "video"
}

// ClockRate implements Codec.
func (c *MJPEG) ClockRate() int {
	return 90000
}

// PayloadType implements Codec.
func (c *MJPEG) PayloadType(_ int) uint8 {
	return rtpmjpeg.PayloadType
}

// RTPMap implements Codec.
func (c *MJPEG) RTPMap() string {
	return "JPEG/90000"
}

// FMTP implements Codec.
func (c *MJPEG) FMTP() map[string]string {
	return nil
}

// Attributes implements Codec.
func (c *MJPEG) Attributes() []sdp.Attribute {
	if c.FPS <= 0 {
		return nil
	}
	return []sdp.Attribute{{Key: "framerate", Value: strconv.FormatInt(int64(c.FPS), 10)}}
}

// InitExtra implements Codec.
func (c *MJPEG) InitExtra(s *Sink) error {
	ssrc := s.SSRC()
	seq := s.SequenceNumber()

	c.enc = &rtpmjpeg.Encoder{
		SSRC:                  &ssrc,
		InitialSequenceNumber: &seq,
	}
	return c.enc.Init()
}

// TeardownExtra implements Codec.
func (c *MJPEG) TeardownExtra(_ *Sink) {
	c.enc = nil
}

// SendFrame implements Codec.
func (c *MJPEG) SendFrame(s *Sink, f *Frame, w PacketWriter) error {
	if c.enc == nil {
		return errNotOpen(c.Name())
	}

	pkts, err := c.enc.Encode(f.Data)
	if err != nil {
		return err
	}

	return s.WritePackets(pkts, f.Timestamp, w)
}
