package sink

import (
	"encoding/hex"
	"strconv"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/pion/sdp/v3"

	"github.com/bluenviron/camrtsp/pkg/format/rtpmpeg4audio"
)

const (
	mpeg4AudioSizeLength       = 13
	mpeg4AudioIndexLength      = 3
	mpeg4AudioIndexDeltaLength = 3

	defaultMPEG4AudioSampleRate   = 16000
	defaultMPEG4AudioChannelCount = 2
)

// MPEG4Audio is the MPEG-4 Audio (AAC) codec, sent in AAC-hbr mode.
// Frames are raw access units.
type MPEG4Audio struct {
	// sample rate (optional).
	// It defaults to 16000.
	SampleRate int

	// channel count (optional).
	// It defaults to 2.
	ChannelCount int

	enc *rtpmpeg4audio.Encoder
}

func (c *MPEG4Audio) sampleRate() int {
	if c.SampleRate == 0 {
		return defaultMPEG4AudioSampleRate
	}
	return c.SampleRate
}

func (c *MPEG4Audio) channelCount() int {
	if c.ChannelCount == 0 {
		return defaultMPEG4AudioChannelCount
	}
	return c.ChannelCount
}

// Name implements Codec.
func (c *MPEG4Audio) Name() string {
	return "MP4A"
}

// MediaType implements Codec.
func (c *MPEG4Audio) MediaType() string {
	return "audio"
}

// ClockRate implements Codec.
func (c *MPEG4Audio) ClockRate() int {
	return c.sampleRate()
}

// PayloadType implements Codec.
func (c *MPEG4Audio) PayloadType(id int) uint8 {
	return uint8(payloadTypeDynamicBase + id)
}

// RTPMap implements Codec.
func (c *MPEG4Audio) RTPMap() string {
	return "mpeg4-generic/" + strconv.FormatInt(int64(c.sampleRate()), 10) +
		"/" + strconv.FormatInt(int64(c.channelCount()), 10)
}

// FMTP implements Codec.
func (c *MPEG4Audio) FMTP() map[string]string {
	fmtp := map[string]string{
		"streamtype":       "5",
		"mode":             "AAC-hbr",
		"profile-level-id": "1",
		"sizelength":       strconv.FormatInt(mpeg4AudioSizeLength, 10),
		"indexlength":      strconv.FormatInt(mpeg4AudioIndexLength, 10),
		"indexdeltalength": strconv.FormatInt(mpeg4AudioIndexDeltaLength, 10),
	}

	conf := mpeg4audio.Config{
		Type:         mpeg4audio.ObjectTypeAACLC,
		SampleRate:   c.sampleRate(),
		ChannelCount: c.channelCount(),
	}
	enc, err := conf.Marshal()
	if err == nil {
		fmtp["config"] = hex.EncodeToString(enc)
	}

	return fmtp
}

// Attributes implements Codec.
func (c *MPEG4Audio) Attributes() []sdp.Attribute {
	return nil
}

// InitExtra implements Codec.
func (c *MPEG4Audio) InitExtra(s *Sink) error {
	ssrc := s.SSRC()
	seq := s.SequenceNumber()

	c.enc = &rtpmpeg4audio.Encoder{
		PayloadType:           s.PayloadType(),
		SizeLength:            mpeg4AudioSizeLength,
		IndexLength:           mpeg4AudioIndexLength,
		SSRC:                  &ssrc,
		InitialSequenceNumber: &seq,
	}
	return c.enc.Init()
}

// TeardownExtra implements Codec.
func (c *MPEG4Audio) TeardownExtra(_ *Sink) {
	c.enc = nil
}

// SendFrame implements Codec.
func (c *MPEG4Audio) SendFrame(s *Sink, f *Frame, w PacketWriter) error {
	if c.enc == nil {
		return errNotOpen(c.Name())
	}

	pkts, err := c.enc.Encode(f.Data)
	if err != nil {
		return err
	}

	return s.WritePackets(pkts, f.Timestamp, w)
}
