package description

import (
	"sort"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// Format is the part of a codec that is advertised in the SDP.
type Format interface {
	MediaType() string
	RTPMap() string
	FMTP() map[string]string
	Attributes() []psdp.Attribute
}

func sortedKeys(fmtp map[string]string) []string {
	keys := make([]string, len(fmtp))
	i := 0
	for key := range fmtp {
		keys[i] = key
		i++
	}
	sort.Strings(keys)
	return keys
}

// Media is a media stream.
type Media struct {
	// format of the stream
	Format Format

	// RTP payload type
	PayloadType uint8

	// control attribute, relative to the Content-Base
	Control string
}

// Marshal encodes the media in SDP format.
func (m Media) Marshal() *psdp.MediaDescription {
	typ := strconv.FormatUint(uint64(m.PayloadType), 10)

	md := &psdp.MediaDescription{
		MediaName: psdp.MediaName{
			Media:   m.Format.MediaType(),
			Port:    psdp.RangedPort{Value: 0},
			Protos:  []string{"RTP", "AVP"},
			Formats: []string{typ},
		},
	}

	rtpmap := m.Format.RTPMap()
	if rtpmap != "" {
		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "rtpmap",
			Value: typ + " " + rtpmap,
		})
	}

	fmtp := m.Format.FMTP()
	if len(fmtp) != 0 {
		tmp := make([]string, len(fmtp))
		for i, key := range sortedKeys(fmtp) {
			tmp[i] = key + "=" + fmtp[key]
		}

		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "fmtp",
			Value: typ + " " + strings.Join(tmp, "; "),
		})
	}

	md.Attributes = append(md.Attributes, m.Format.Attributes()...)

	md.Attributes = append(md.Attributes, psdp.Attribute{
		Key:   "control",
		Value: m.Control,
	})

	return md
}
