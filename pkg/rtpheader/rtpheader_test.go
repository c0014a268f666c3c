package rtpheader

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

var cases = []struct {
	name string
	enc  []byte
	dec  Fields
}{
	{
		"jpeg",
		[]byte{
			0x80, 0x9a, 0x12, 0x34, 0x00, 0x01, 0x5f, 0x90,
			0x10, 0x20, 0x30, 0x40,
		},
		Fields{
			Version:        2,
			Marker:         true,
			PayloadType:    26,
			SequenceNumber: 0x1234,
			Timestamp:      90000,
			SSRC:           0x10203040,
		},
	},
	{
		"all bits",
		[]byte{
			0xbf, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
			0xff, 0xff, 0xff, 0xff,
		},
		Fields{
			Version:        2,
			Padding:        true,
			Extension:      true,
			CSRCCount:      15,
			Marker:         true,
			PayloadType:    127,
			SequenceNumber: 65535,
			Timestamp:      0xFFFFFFFF,
			SSRC:           0xFFFFFFFF,
		},
	},
	{
		"zero",
		[]byte{
			0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00,
		},
		Fields{
			Version: 2,
		},
	},
}

func TestFill(t *testing.T) {
	for _, ca := range cases {
		t.Run(ca.name, func(t *testing.T) {
			buf, err := Fill(ca.dec)
			require.NoError(t, err)
			require.Equal(t, ca.enc, buf)
		})
	}
}

func TestParse(t *testing.T) {
	for _, ca := range cases {
		t.Run(ca.name, func(t *testing.T) {
			f, err := Parse(ca.enc)
			require.NoError(t, err)
			require.Equal(t, ca.dec, f)
		})
	}
}

func TestRoundTripRanges(t *testing.T) {
	for pt := 0; pt <= 127; pt++ {
		for _, seq := range []int{0, 1, 255, 256, 32767, 32768, 65534, 65535} {
			in := Fields{
				Version:        2,
				Marker:         seq%2 == 0,
				PayloadType:    uint8(pt),
				SequenceNumber: uint16(seq),
				Timestamp:      uint32(seq) * 3000,
				SSRC:           0x10000000 + uint32(pt),
			}

			buf, err := Fill(in)
			require.NoError(t, err)
			require.Len(t, buf, Size)

			out, err := Parse(buf)
			require.NoError(t, err)
			require.Equal(t, in, out)
		}
	}
}

func TestFillMatchesPion(t *testing.T) {
	buf, err := Fill(Fields{
		Version:        2,
		Marker:         true,
		PayloadType:    96,
		SequenceNumber: 946,
		Timestamp:      123456,
		SSRC:           0x9dbb7812,
	})
	require.NoError(t, err)

	var h rtp.Header
	_, err = h.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, uint8(2), h.Version)
	require.True(t, h.Marker)
	require.Equal(t, uint8(96), h.PayloadType)
	require.Equal(t, uint16(946), h.SequenceNumber)
	require.Equal(t, uint32(123456), h.Timestamp)
	require.Equal(t, uint32(0x9dbb7812), h.SSRC)
}

func TestFillErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		f    Fields
		err  string
	}{
		{"version", Fields{Version: 1}, "unsupported RTP version 1"},
		{"payload type", Fields{Version: 2, PayloadType: 128}, "invalid payload type 128"},
		{"csrc count", Fields{Version: 2, CSRCCount: 16}, "invalid CSRC count 16"},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := Fill(ca.f)
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestParseShort(t *testing.T) {
	_, err := Parse([]byte{0x80, 0x60})
	require.EqualError(t, err, "buffer is too short (2 bytes)")
}
