// Package rtcpreport contains a parser of compound RTCP packets sent by receivers.
// Specification: https://datatracker.ietf.org/doc/html/rfc3550#section-6
package rtcpreport

import (
	"fmt"

	"github.com/pion/rtcp"
)

// ErrLengthOverrun is returned when a sub-packet declares a length that
// exceeds the remaining bytes of the compound packet.
type ErrLengthOverrun struct {
	Declared  int
	Remaining int
}

// Error implements the error interface.
func (e ErrLengthOverrun) Error() string {
	return fmt.Sprintf("sub-packet length %d exceeds remaining %d bytes", e.Declared, e.Remaining)
}

// Packet is a parsed RTCP sub-packet.
type Packet interface {
	PacketType() rtcp.PacketType
}

// ReceptionReport is a reception report block.
type ReceptionReport struct {
	SSRC             uint32
	FractionLost     uint8
	CumulativeLost   int32
	HighestSequence  uint32
	Jitter           uint32
	LastSR           uint32
	DelaySinceLastSR uint32
}

// SenderReport is a SR packet.
type SenderReport struct {
	SSRC        uint32
	NTPTime     uint64
	RTPTime     uint32
	PacketCount uint32
	OctetCount  uint32
	Reports     []ReceptionReport
}

// PacketType implements Packet.
func (SenderReport) PacketType() rtcp.PacketType {
	return rtcp.TypeSenderReport
}

// ReceiverReport is a RR packet.
type ReceiverReport struct {
	SSRC    uint32
	Reports []ReceptionReport
}

// PacketType implements Packet.
func (ReceiverReport) PacketType() rtcp.PacketType {
	return rtcp.TypeReceiverReport
}

// SourceDescriptionItem is a SDES item.
type SourceDescriptionItem struct {
	Type rtcp.SDESType
	Text string
}

// SourceDescriptionChunk is the list of items of a source.
type SourceDescriptionChunk struct {
	SSRC  uint32
	Items []SourceDescriptionItem
}

// SourceDescription is a SDES packet.
type SourceDescription struct {
	Chunks []SourceDescriptionChunk
}

// PacketType implements Packet.
func (SourceDescription) PacketType() rtcp.PacketType {
	return rtcp.TypeSourceDescription
}

// Goodbye is a BYE packet.
type Goodbye struct {
	Sources []uint32
	Reason  string
}

// PacketType implements Packet.
func (Goodbye) PacketType() rtcp.PacketType {
	return rtcp.TypeGoodbye
}

// Unknown is a sub-packet whose type is not handled.
type Unknown struct {
	Type   rtcp.PacketType
	Length int
}

// PacketType implements Packet.
func (u Unknown) PacketType() rtcp.PacketType {
	return u.Type
}

// cumulative lost is a signed 24 bit integer.
func signExtend24(v uint32) int32 {
	v &= 0xFFFFFF
	if (v & 0x800000) != 0 {
		return int32(v) - 0x1000000
	}
	return int32(v)
}

func convertReports(in []rtcp.ReceptionReport) []ReceptionReport {
	if len(in) == 0 {
		return nil
	}

	out := make([]ReceptionReport, len(in))
	for i, r := range in {
		out[i] = ReceptionReport{
			SSRC:             r.SSRC,
			FractionLost:     r.FractionLost,
			CumulativeLost:   signExtend24(r.TotalLost),
			HighestSequence:  r.LastSequenceNumber,
			Jitter:           r.Jitter,
			LastSR:           r.LastSenderReport,
			DelaySinceLastSR: r.Delay,
		}
	}
	return out
}

func parseSubPacket(h rtcp.Header, buf []byte) (Packet, error) {
	switch h.Type {
	case rtcp.TypeSenderReport:
		var sr rtcp.SenderReport
		err := sr.Unmarshal(buf)
		if err != nil {
			return nil, fmt.Errorf("invalid SR: %w", err)
		}

		return SenderReport{
			SSRC:        sr.SSRC,
			NTPTime:     sr.NTPTime,
			RTPTime:     sr.RTPTime,
			PacketCount: sr.PacketCount,
			OctetCount:  sr.OctetCount,
			Reports:     convertReports(sr.Reports),
		}, nil

	case rtcp.TypeReceiverReport:
		var rr rtcp.ReceiverReport
		err := rr.Unmarshal(buf)
		if err != nil {
			return nil, fmt.Errorf("invalid RR: %w", err)
		}

		return ReceiverReport{
			SSRC:    rr.SSRC,
			Reports: convertReports(rr.Reports),
		}, nil

	case rtcp.TypeSourceDescription:
		var sd rtcp.SourceDescription
		err := sd.Unmarshal(buf)
		if err != nil {
			return nil, fmt.Errorf("invalid SDES: %w", err)
		}

		out := SourceDescription{
			Chunks: make([]SourceDescriptionChunk, len(sd.Chunks)),
		}
		for i, c := range sd.Chunks {
			out.Chunks[i].SSRC = c.Source
			for _, it := range c.Items {
				out.Chunks[i].Items = append(out.Chunks[i].Items, SourceDescriptionItem{
					Type: it.Type,
					Text: it.Text,
				})
			}
		}
		return out, nil

	case rtcp.TypeGoodbye:
		var bye rtcp.Goodbye
		err := bye.Unmarshal(buf)
		if err != nil {
			return nil, fmt.Errorf("invalid BYE: %w", err)
		}

		return Goodbye{
			Sources: bye.Sources,
			Reason:  bye.Reason,
		}, nil
	}

	return Unknown{
		Type:   h.Type,
		Length: len(buf),
	}, nil
}

// Parse decodes a compound RTCP packet.
// Parsing stops at the first malformed sub-packet and no partial result is returned.
func Parse(buf []byte) ([]Packet, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty packet")
	}

	remaining := len(buf)
	var ret []Packet

	for remaining > 0 {
		var h rtcp.Header
		err := h.Unmarshal(buf)
		if err != nil {
			return nil, err
		}

		size := (int(h.Length) + 1) * 4
		if remaining-size < 0 {
			return nil, ErrLengthOverrun{
				Declared:  size,
				Remaining: remaining,
			}
		}
		remaining -= size

		pkt, err := parseSubPacket(h, buf[:size])
		if err != nil {
			return nil, err
		}
		ret = append(ret, pkt)

		buf = buf[size:]
	}

	return ret, nil
}
