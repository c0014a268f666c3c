package jpeg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildImage(width int, height int, dri uint16, precision uint8, scan []byte) []byte {
	size := 64
	if precision == 1 {
		size = 128
	}

	buf := StartOfImage{}.Marshal(nil)
	buf = append(buf, 0xFF, MarkerApplication0, 0x00, 0x07, 'J', 'F', 'I', 'F', 0x00)
	buf = DefineQuantizationTable{Tables: []QuantizationTable{
		{ID: 1, Precision: precision, Data: bytes.Repeat([]byte{0x22}, size)},
		{ID: 0, Precision: precision, Data: bytes.Repeat([]byte{0x11}, size)},
	}}.Marshal(buf)
	buf = StartOfFrame{
		Type:                   1,
		Width:                  width,
		Height:                 height,
		QuantizationTableCount: 2,
	}.Marshal(buf)
	buf = DefineHuffmanTable{
		Codes:   make([]byte, 16),
		Symbols: []byte{0x01},
	}.Marshal(buf)
	if dri != 0 {
		buf = DefineRestartInterval{Interval: dri}.Marshal(buf)
	}
	buf = StartOfScan{}.Marshal(buf)
	buf = append(buf, scan...)
	buf = append(buf, 0xFF, MarkerEndOfImage)
	return buf
}

func TestHeaderUnmarshal(t *testing.T) {
	for _, ca := range []struct {
		name      string
		dri       uint16
		precision uint8
	}{
		{"base", 0, 0},
		{"restart interval", 12, 0},
		{"16 bit tables", 0, 1},
	} {
		t.Run(ca.name, func(t *testing.T) {
			scan := bytes.Repeat([]byte{0x55}, 300)
			image := buildImage(640, 480, ca.dri, ca.precision, scan)

			var h Header
			err := h.Unmarshal(image)
			require.NoError(t, err)

			require.Equal(t, uint8(1), h.Type)
			require.Equal(t, 640, h.Width)
			require.Equal(t, 480, h.Height)
			require.Equal(t, ca.dri, h.RestartInterval)
			require.Len(t, h.QuantizationTables, 2)
			require.Equal(t, uint8(0), h.QuantizationTables[0].ID)
			require.Equal(t, uint8(1), h.QuantizationTables[1].ID)
			require.Equal(t, ca.precision, h.QuantizationTables[0].Precision)
			require.Equal(t, append(scan, 0xFF, MarkerEndOfImage), image[h.ScanOffset:])
		})
	}
}

func TestHeaderUnmarshalErrors(t *testing.T) {
	valid := buildImage(640, 480, 0, 0, []byte{1, 2, 3})

	for _, ca := range []struct {
		name  string
		image []byte
		err   string
	}{
		{
			"no soi",
			[]byte{0x00, 0x01, 0x02},
			"SOI not found",
		},
		{
			"truncated",
			valid[:40],
			"image is too short",
		},
		{
			"no sos",
			[]byte{0xFF, MarkerStartOfImage},
			"SOS not found",
		},
		{
			"eoi before sos",
			[]byte{0xFF, MarkerStartOfImage, 0xFF, MarkerEndOfImage},
			"EOI found before SOS",
		},
		{
			"no sof",
			StartOfScan{}.Marshal([]byte{0xFF, MarkerStartOfImage}),
			"SOF not found",
		},
		{
			"too wide",
			buildImage(4096, 480, 0, 0, []byte{1}),
			"an image of 4096x480 can't be sent with RTP",
		},
		{
			"not multiple of 8",
			buildImage(642, 480, 0, 0, []byte{1}),
			"width and height must be multiple of 8",
		},
		{
			"no data",
			valid[:len(valid)-5],
			"image data not found",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var h Header
			err := h.Unmarshal(ca.image)
			require.EqualError(t, err, ca.err)
		})
	}
}
