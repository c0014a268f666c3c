package jpeg

import (
	"fmt"
	"sort"
)

// MaxDimension is the maximum width or height that fits in the 8-pixel
// block counters of RTP/JPEG.
const MaxDimension = 2040

// Header contains the parameters of a JPEG image that are needed to
// transmit it without its header section.
type Header struct {
	Type               uint8
	Width              int
	Height             int
	RestartInterval    uint16
	QuantizationTables []QuantizationTable

	// position of the entropy-coded data, right after the SOS marker.
	ScanOffset int
}

// Unmarshal scans the header section of an image, up to the SOS marker.
func (h *Header) Unmarshal(image []byte) error {
	if len(image) < 2 || image[0] != 0xFF || image[1] != MarkerStartOfImage {
		return fmt.Errorf("SOI not found")
	}

	*h = Header{}

	var sof *StartOfFrame
	tables := make(map[uint8]QuantizationTable)
	pos := 2

outer:
	for {
		if (len(image) - pos) < 2 {
			return fmt.Errorf("SOS not found")
		}

		h0, h1 := image[pos], image[pos+1]
		pos += 2

		if h0 != 0xFF {
			return fmt.Errorf("invalid marker prefix 0x%.2x", h0)
		}

		// fill bytes
		if h1 == 0xFF {
			pos--
			continue
		}

		if h1 == MarkerEndOfImage {
			return fmt.Errorf("EOI found before SOS")
		}

		mlen, ok := markerLength(image[pos:])
		if !ok {
			return fmt.Errorf("image is too short")
		}
		payload := image[pos+2 : pos+mlen]
		pos += mlen

		switch {
		case h1 == MarkerDefineQuantizationTable:
			var dqt DefineQuantizationTable
			err := dqt.Unmarshal(payload)
			if err != nil {
				return err
			}

			for _, t := range dqt.Tables {
				tables[t.ID] = t
			}

		case h1 == MarkerDefineRestartInterval:
			var dri DefineRestartInterval
			err := dri.Unmarshal(payload)
			if err != nil {
				return err
			}
			h.RestartInterval = dri.Interval

		case h1 == MarkerStartOfFrame0:
			sof = &StartOfFrame{}
			err := sof.Unmarshal(payload)
			if err != nil {
				return err
			}

		case h1 == MarkerStartOfScan:
			var sos StartOfScan
			err := sos.Unmarshal(payload)
			if err != nil {
				return err
			}
			break outer

		case h1 == MarkerDefineHuffmanTable,
			h1 == MarkerComment,
			h1 >= MarkerApplication0 && h1 <= MarkerApplication15:

		default:
			return fmt.Errorf("unsupported marker 0x%.2x", h1)
		}
	}

	if sof == nil {
		return fmt.Errorf("SOF not found")
	}

	if sof.Width > MaxDimension || sof.Height > MaxDimension {
		return fmt.Errorf("an image of %dx%d can't be sent with RTP", sof.Width, sof.Height)
	}

	if (sof.Width%8) != 0 || (sof.Height%8) != 0 {
		return fmt.Errorf("width and height must be multiple of 8")
	}

	if pos == len(image) {
		return fmt.Errorf("image data not found")
	}

	ids := make([]uint8, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	h.QuantizationTables = make([]QuantizationTable, len(ids))
	for i, id := range ids {
		h.QuantizationTables[i] = tables[id]
	}

	h.Type = sof.Type
	h.Width = sof.Width
	h.Height = sof.Height
	h.ScanOffset = pos

	return nil
}
