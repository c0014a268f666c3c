package rtpmpeg4audio

import (
	"bytes"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func uint16Ptr(v uint16) *uint16 {
	return &v
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

func mergeBytes(vals ...[]byte) []byte {
	var res []byte
	for _, v := range vals {
		res = append(res, v...)
	}
	return res
}

var cases = []struct {
	name string
	au   []byte
	pkts []*rtp.Packet
}{
	{
		"single",
		[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		[]*rtp.Packet{
			{
				Header: rtp.Header{
					Version:        2,
					Marker:         true,
					PayloadType:    97,
					SequenceNumber: 17645,
					SSRC:           0x9dbb7812,
				},
				Payload: []byte{
					0x00, 0x10, 0x00, 0x40,
					0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
				},
			},
		},
	},
	{
		"fragmented",
		bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 200/4),
		[]*rtp.Packet{
			{
				Header: rtp.Header{
					Version:        2,
					Marker:         false,
					PayloadType:    97,
					SequenceNumber: 17645,
					SSRC:           0x9dbb7812,
				},
				Payload: mergeBytes(
					[]byte{0x00, 0x10, 0x06, 0x40},
					bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 96/4),
				),
			},
			{
				Header: rtp.Header{
					Version:        2,
					Marker:         false,
					PayloadType:    97,
					SequenceNumber: 17646,
					SSRC:           0x9dbb7812,
				},
				Payload: mergeBytes(
					[]byte{0x00, 0x10, 0x06, 0x40},
					bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 96/4),
				),
			},
			{
				Header: rtp.Header{
					Version:        2,
					Marker:         true,
					PayloadType:    97,
					SequenceNumber: 17647,
					SSRC:           0x9dbb7812,
				},
				Payload: mergeBytes(
					[]byte{0x00, 0x10, 0x06, 0x40},
					bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 8/4),
				),
			},
		},
	},
}

func TestEncode(t *testing.T) {
	for _, ca := range cases {
		t.Run(ca.name, func(t *testing.T) {
			e := &Encoder{
				PayloadType:           97,
				SSRC:                  uint32Ptr(0x9dbb7812),
				InitialSequenceNumber: uint16Ptr(0x44ed),
				PayloadMaxSize:        100,
			}
			err := e.Init()
			require.NoError(t, err)

			pkts, err := e.Encode(ca.au)
			require.NoError(t, err)
			require.Equal(t, ca.pkts, pkts)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	e := &Encoder{
		PayloadType: 97,
	}
	err := e.Init()
	require.NoError(t, err)

	_, err = e.Encode(nil)
	require.EqualError(t, err, "access unit is empty")

	_, err = e.Encode(make([]byte, 8192))
	require.EqualError(t, err, "access unit is too big (8192 bytes)")

	e = &Encoder{
		PayloadType:    97,
		PayloadMaxSize: 4,
	}
	err = e.Init()
	require.EqualError(t, err, "payload size 4 is too small")
}

func TestEncodeRandomInitialState(t *testing.T) {
	e := &Encoder{
		PayloadType: 97,
	}
	err := e.Init()
	require.NoError(t, err)
	require.NotEqual(t, nil, e.SSRC)
	require.NotEqual(t, nil, e.InitialSequenceNumber)
}
