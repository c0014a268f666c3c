// Package jpeg contains JPEG/JFIF markers and a parser of the header
// section that precedes the entropy-coded scan.
package jpeg

// markers.
const (
	MarkerStartOfImage            = 0xD8
	MarkerEndOfImage              = 0xD9
	MarkerStartOfScan             = 0xDA
	MarkerDefineQuantizationTable = 0xDB
	MarkerDefineRestartInterval   = 0xDD
	MarkerDefineHuffmanTable      = 0xC4
	MarkerStartOfFrame0           = 0xC0
	MarkerComment                 = 0xFE
	MarkerApplication0            = 0xE0
	MarkerApplication15           = 0xEF
)

func markerLength(buf []byte) (int, bool) {
	if len(buf) < 2 {
		return 0, false
	}

	l := int(buf[0])<<8 | int(buf[1])
	if l < 2 || len(buf) < l {
		return 0, false
	}
	return l, true
}
