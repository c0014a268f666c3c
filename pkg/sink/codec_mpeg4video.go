package sink

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/bluenviron/camrtsp/pkg/format/rtpmpeg4video"
)

// MPEG4Video is the MPEG-4 Visual codec.
// Frames are chunks of the elementary stream.
type MPEG4Video struct {
	// profile and level, advertised in the SDP (optional).
	// It defaults to 1.
	ProfileLevelID int

	// visual object sequence header and following, advertised in the SDP (optional).
	Config []byte

	enc *rtpmpeg4video.Encoder
}

// Name implements Codec.
func (c *MPEG4Video) Name() string {
	return "MP4V"
}

// MediaType implements Codec.
func (c *MPEG4Video) MediaType() string {
	return "video"
}

// ClockRate implements Codec.
func (c *MPEG4Video) ClockRate() int {
	return 90000
}

// PayloadType implements Codec.
func (c *MPEG4Video) PayloadType(id int) uint8 {
	return uint8(payloadTypeDynamicBase + id)
}

// RTPMap implements Codec.
func (c *MPEG4Video) RTPMap() string {
	return "MP4V-ES/90000"
}

// FMTP implements Codec.
func (c *MPEG4Video) FMTP() map[string]string {
	profileLevelID := c.ProfileLevelID
	if profileLevelID == 0 {
		profileLevelID = 1
	}

	fmtp := map[string]string{
		"profile-level-id": strconv.FormatInt(int64(profileLevelID), 10),
	}

	if c.Config != nil {
		fmtp["config"] = strings.ToUpper(hex.EncodeToString(c.Config))
	}

	return fmtp
}

// Attributes implements Codec.
func (c *MPEG4Video) Attributes() []sdp.Attribute {
	return nil
}

// InitExtra implements Codec.
func (c *MPEG4Video) InitExtra(s *Sink) error {
	ssrc := s.SSRC()
	seq := s.SequenceNumber()

	c.enc = &rtpmpeg4video.Encoder{
		PayloadType:           s.PayloadType(),
		SSRC:                  &ssrc,
		InitialSequenceNumber: &seq,
	}
	return c.enc.Init()
}

// TeardownExtra implements Codec.
func (c *MPEG4Video) TeardownExtra(_ *Sink) {
	c.enc = nil
}

// SendFrame implements Codec.
func (c *MPEG4Video) SendFrame(s *Sink, f *Frame, w PacketWriter) error {
	if c.enc == nil {
		return errNotOpen(c.Name())
	}

	pkts, err := c.enc.Encode(f.Data)
	if err != nil {
		return err
	}

	return s.WritePackets(pkts, f.Timestamp, w)
}
