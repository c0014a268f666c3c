package rtpmjpeg

import (
	"bytes"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"

	"github.com/bluenviron/camrtsp/pkg/codecs/jpeg"
)

func uint32Ptr(v uint32) *uint32 {
	return &v
}

func uint16Ptr(v uint16) *uint16 {
	return &v
}

func buildImage(dri uint16, precision uint8, scan []byte) []byte {
	size := 64
	if precision == 1 {
		size = 128
	}

	buf := jpeg.StartOfImage{}.Marshal(nil)
	buf = jpeg.DefineQuantizationTable{Tables: []jpeg.QuantizationTable{
		{ID: 0, Precision: precision, Data: bytes.Repeat([]byte{0x11}, size)},
		{ID: 1, Precision: precision, Data: bytes.Repeat([]byte{0x22}, size)},
	}}.Marshal(buf)
	buf = jpeg.StartOfFrame{
		Type:                   1,
		Width:                  320,
		Height:                 240,
		QuantizationTableCount: 2,
	}.Marshal(buf)
	if dri != 0 {
		buf = jpeg.DefineRestartInterval{Interval: dri}.Marshal(buf)
	}
	buf = jpeg.StartOfScan{}.Marshal(buf)
	buf = append(buf, scan...)
	return buf
}

type decodedFragment struct {
	jh      headerJPEG
	rh      *headerRestartMarker
	qth     *headerQuantizationTable
	payload []byte
}

func decodeFragment(t *testing.T, pkt *rtp.Packet) decodedFragment {
	var f decodedFragment
	buf := pkt.Payload

	n, err := f.jh.unmarshal(buf)
	require.NoError(t, err)
	buf = buf[n:]

	if f.jh.Type >= 64 {
		f.rh = &headerRestartMarker{}
		n, err = f.rh.unmarshal(buf)
		require.NoError(t, err)
		buf = buf[n:]
	}

	if f.jh.FragmentOffset == 0 && f.jh.Quantization >= 128 {
		f.qth = &headerQuantizationTable{}
		n, err = f.qth.unmarshal(buf)
		require.NoError(t, err)
		buf = buf[n:]
	}

	f.payload = buf
	return f
}

func TestEncodeSinglePacket(t *testing.T) {
	e := &Encoder{
		SSRC:                  uint32Ptr(0x9dbb7812),
		InitialSequenceNumber: uint16Ptr(0x44ed),
	}
	err := e.Init()
	require.NoError(t, err)

	pkts, err := e.Encode(buildImage(0, 0, []byte{0x01, 0x02, 0x03, 0xFF, 0xD9}))
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	expected := []byte{
		0x00, 0x00, 0x00, 0x00, 0x01, 0xff, 0x28, 0x1e,
		0x00, 0x00, 0x00, 0x80,
	}
	expected = append(expected, bytes.Repeat([]byte{0x11}, 64)...)
	expected = append(expected, bytes.Repeat([]byte{0x22}, 64)...)
	expected = append(expected, 0x01, 0x02, 0x03, 0xFF, 0xD9)

	require.Equal(t, &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         true,
			PayloadType:    26,
			SequenceNumber: 0x44ed,
			SSRC:           0x9dbb7812,
		},
		Payload: expected,
	}, pkts[0])
}

func TestEncodeFragmentation(t *testing.T) {
	for _, ca := range []struct {
		name           string
		dri            uint16
		precision      uint8
		payloadMaxSize int
		scanSize       int
	}{
		{"default budget", 0, 0, 0, 10000},
		{"small budget", 0, 0, 300, 5000},
		{"restart interval", 8, 0, 400, 3333},
		{"16 bit tables", 0, 1, 600, 2000},
		{"uneven tail", 0, 0, 200, 2 * (200 - 8)},
	} {
		t.Run(ca.name, func(t *testing.T) {
			scan := make([]byte, ca.scanSize)
			for i := range scan {
				scan[i] = byte(i)
			}

			e := &Encoder{
				SSRC:                  uint32Ptr(0x10000001),
				InitialSequenceNumber: uint16Ptr(65530),
				PayloadMaxSize:        ca.payloadMaxSize,
			}
			err := e.Init()
			require.NoError(t, err)

			pkts, err := e.Encode(buildImage(ca.dri, ca.precision, scan))
			require.NoError(t, err)
			require.Greater(t, len(pkts), 1)

			var reassembled []byte

			for i, pkt := range pkts {
				require.LessOrEqual(t, len(pkt.Payload), e.PayloadMaxSize)
				require.Equal(t, uint16(65530)+uint16(i), pkt.SequenceNumber)
				require.Equal(t, i == len(pkts)-1, pkt.Marker)
				require.Equal(t, uint8(26), pkt.PayloadType)

				f := decodeFragment(t, pkt)
				require.Equal(t, uint32(len(reassembled)), f.jh.FragmentOffset)
				require.Equal(t, 320, f.jh.Width)
				require.Equal(t, 240, f.jh.Height)
				require.Equal(t, uint8(255), f.jh.Quantization)

				if ca.dri != 0 {
					require.Equal(t, uint8(65), f.jh.Type)
					require.Equal(t, &headerRestartMarker{
						Interval: ca.dri,
						First:    true,
						Last:     true,
						Count:    0x3FFF,
					}, f.rh)
				} else {
					require.Equal(t, uint8(1), f.jh.Type)
					require.Nil(t, f.rh)
				}

				if i == 0 {
					require.NotNil(t, f.qth)
					require.Len(t, f.qth.Tables, 2)
					if ca.precision == 1 {
						require.Equal(t, uint8(0x03), f.qth.Precision)
						require.Len(t, f.qth.Tables[0], 128)
					} else {
						require.Equal(t, uint8(0x00), f.qth.Precision)
						require.Len(t, f.qth.Tables[0], 64)
					}
				} else {
					require.Nil(t, f.qth)
				}

				reassembled = append(reassembled, f.payload...)
			}

			require.Equal(t, scan, reassembled)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	e := &Encoder{PayloadMaxSize: 100}
	err := e.Init()
	require.NoError(t, err)

	_, err = e.Encode([]byte{0x00, 0x01})
	require.EqualError(t, err, "SOI not found")

	_, err = e.Encode(buildImage(0, 0, []byte{1, 2, 3}))
	require.EqualError(t, err, "payload size 100 is too small for headers")
}

func TestEncodeOffsetIsBigEndian(t *testing.T) {
	h := headerJPEG{
		FragmentOffset: 0x012345,
		Type:           1,
		Quantization:   255,
		Width:          640,
		Height:         480,
	}
	require.Equal(t, []byte{0x00, 0x01, 0x23, 0x45, 0x01, 0xff, 0x50, 0x3c}, h.marshal(nil))
}
