package jpeg

// DefineHuffmanTable is a DHT marker.
// Tables are forwarded untouched, therefore only encoding is needed.
type DefineHuffmanTable struct {
	Codes       []byte
	Symbols     []byte
	TableNumber uint8
	TableClass  uint8
}

// Marshal encodes the marker.
func (m DefineHuffmanTable) Marshal(buf []byte) []byte {
	buf = append(buf, []byte{0xFF, MarkerDefineHuffmanTable}...)
	s := 3 + len(m.Codes) + len(m.Symbols)
	buf = append(buf, []byte{byte(s >> 8), byte(s)}...)
	buf = append(buf, (m.TableClass<<4)|m.TableNumber)
	buf = append(buf, m.Codes...)
	buf = append(buf, m.Symbols...)
	return buf
}
