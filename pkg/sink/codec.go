package sink

import (
	"fmt"
	"strings"

	"github.com/pion/sdp/v3"
)

// payloadTypeDynamicBase is the first dynamic payload type.
// Streams with a dynamic payload type use this value plus their index.
const payloadTypeDynamicBase = 96

// Codec is a media codec that can be sent by a Sink.
type Codec interface {
	// Name returns the codec name.
	Name() string

	// MediaType returns the SDP media type ("video" or "audio").
	MediaType() string

	// ClockRate returns the RTP clock rate.
	ClockRate() int

	// PayloadType returns the RTP payload type of a stream with the given index.
	PayloadType(id int) uint8

	// RTPMap returns the encoding part of the rtpmap attribute.
	RTPMap() string

	// FMTP returns the format parameters.
	FMTP() map[string]string

	// Attributes returns additional media attributes.
	Attributes() []sdp.Attribute

	// InitExtra allocates the codec state of a sink.
	InitExtra(s *Sink) error

	// TeardownExtra releases the codec state of a sink.
	TeardownExtra(s *Sink)

	// SendFrame encodes a frame and writes it.
	SendFrame(s *Sink, f *Frame, w PacketWriter) error
}

// CodecByName allocates a codec with default parameters.
func CodecByName(name string) (Codec, error) {
	switch strings.ToUpper(name) {
	case "MJPEG":
		return &MJPEG{}, nil

	case "H264":
		return &H264{}, nil

	case "PCMU":
		return &G711{MULaw: true}, nil

	case "PCMA":
		return &G711{}, nil

	case "MP4A":
		return &MPEG4Audio{}, nil

	case "MP4V":
		return &MPEG4Video{}, nil
	}

	return nil, fmt.Errorf("unsupported codec '%s'", name)
}

func errNotOpen(name string) error {
	return fmt.Errorf("%s codec state has not been initialized", name)
}
