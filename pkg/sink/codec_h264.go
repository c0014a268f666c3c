package sink

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/bluenviron/camrtsp/pkg/format/rtph264"
)

// H264 is the H264 codec.
// Frames are access units in Annex-B format.
type H264 struct {
	// sequence parameter set, advertised in the SDP (optional).
	SPS []byte

	// picture parameter set, advertised in the SDP (optional).
	PPS []byte

	enc *rtph264.Encoder
}

// Name implements Codec.
func (c *H264) Name() string {
	return "H264"
}

// MediaType implements Codec.
func (c *H264) MediaType() string {
	return "video"
}

// ClockRate implements Codec.
func (c *H264) ClockRate() int {
	return 90000
}

// PayloadType implements Codec.
func (c *H264) PayloadType(id int) uint8 {
	return uint8(payloadTypeDynamicBase + id)
}

// RTPMap implements Codec.
func (c *H264) RTPMap() string {
	return "H264/90000"
}

// FMTP implements Codec.
func (c *H264) FMTP() map[string]string {
	fmtp := map[string]string{
		"packetization-mode": "1",
	}

	var tmp []string
	if c.SPS != nil {
		tmp = append(tmp, base64.StdEncoding.EncodeToString(c.SPS))
	}
	if c.PPS != nil {
		tmp = append(tmp, base64.StdEncoding.EncodeToString(c.PPS))
	}
	if tmp != nil {
		fmtp["sprop-parameter-sets"] = strings.Join(tmp, ",")
	}
	if len(c.SPS) >= 4 {
		fmtp["profile-level-id"] = strings.ToUpper(hex.EncodeToString(c.SPS[1:4]))
	}

	return fmtp
}

// Attributes implements Codec.
func (c *H264) Attributes() []sdp.Attribute {
	return nil
}

// InitExtra implements Codec.
func (c *H264) InitExtra(s *Sink) error {
	ssrc := s.SSRC()
	seq := s.SequenceNumber()

	c.enc = &rtph264.Encoder{
		PayloadType:           s.PayloadType(),
		SSRC:                  &ssrc,
		InitialSequenceNumber: &seq,
	}
	return c.enc.Init()
}

// TeardownExtra implements Codec.
func (c *H264) TeardownExtra(_ *Sink) {
	c.enc = nil
}

// SendFrame implements Codec.
func (c *H264) SendFrame(s *Sink, f *Frame, w PacketWriter) error {
	if c.enc == nil {
		return errNotOpen(c.Name())
	}

	pkts, err := c.enc.EncodeAnnexB(f.Data)
	if err != nil {
		return err
	}

	return s.WritePackets(pkts, f.Timestamp, w)
}
