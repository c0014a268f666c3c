package rtcpreport

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/require"
)

func mustMarshal(t *testing.T, pkts ...rtcp.Packet) []byte {
	byts, err := rtcp.Marshal(pkts)
	require.NoError(t, err)
	return byts
}

func TestParse(t *testing.T) {
	for _, ca := range []struct {
		name string
		in   []rtcp.Packet
		out  []Packet
	}{
		{
			"sender report and sdes",
			[]rtcp.Packet{
				&rtcp.SenderReport{
					SSRC:        0x902f9e2e,
					NTPTime:     0xda8bd1fcdddda05a,
					RTPTime:     0xaaf4edd5,
					PacketCount: 1,
					OctetCount:  2,
					Reports: []rtcp.ReceptionReport{{
						SSRC:               0xbc5e9a40,
						FractionLost:       12,
						TotalLost:          300,
						LastSequenceNumber: 0x46e1,
						Jitter:             273,
						LastSenderReport:   0x9f36432,
						Delay:              150137,
					}},
				},
				&rtcp.SourceDescription{
					Chunks: []rtcp.SourceDescriptionChunk{{
						Source: 0x902f9e2e,
						Items: []rtcp.SourceDescriptionItem{{
							Type: rtcp.SDESCNAME,
							Text: "{9c00eb92-1afb-9d49-a47d-91f64eee69f5}",
						}},
					}},
				},
			},
			[]Packet{
				SenderReport{
					SSRC:        0x902f9e2e,
					NTPTime:     0xda8bd1fcdddda05a,
					RTPTime:     0xaaf4edd5,
					PacketCount: 1,
					OctetCount:  2,
					Reports: []ReceptionReport{{
						SSRC:             0xbc5e9a40,
						FractionLost:     12,
						CumulativeLost:   300,
						HighestSequence:  0x46e1,
						Jitter:           273,
						LastSR:           0x9f36432,
						DelaySinceLastSR: 150137,
					}},
				},
				SourceDescription{
					Chunks: []SourceDescriptionChunk{{
						SSRC: 0x902f9e2e,
						Items: []SourceDescriptionItem{{
							Type: rtcp.SDESCNAME,
							Text: "{9c00eb92-1afb-9d49-a47d-91f64eee69f5}",
						}},
					}},
				},
			},
		},
		{
			"receiver report and bye",
			[]rtcp.Packet{
				&rtcp.ReceiverReport{
					SSRC: 0x11223344,
					Reports: []rtcp.ReceptionReport{{
						SSRC:               0x10203040,
						FractionLost:       0,
						TotalLost:          0xFFFFFE,
						LastSequenceNumber: 1000,
					}},
				},
				&rtcp.Goodbye{
					Sources: []uint32{0x11223344},
					Reason:  "shutdown",
				},
			},
			[]Packet{
				ReceiverReport{
					SSRC: 0x11223344,
					Reports: []ReceptionReport{{
						SSRC:            0x10203040,
						CumulativeLost:  -2,
						HighestSequence: 1000,
					}},
				},
				Goodbye{
					Sources: []uint32{0x11223344},
					Reason:  "shutdown",
				},
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			pkts, err := Parse(mustMarshal(t, ca.in...))
			require.NoError(t, err)
			require.Equal(t, ca.out, pkts)
		})
	}
}

func TestParseUnknownType(t *testing.T) {
	buf := mustMarshal(t, &rtcp.ReceiverReport{SSRC: 1})
	buf = append(buf, []byte{
		0x80, 0xcc, 0x00, 0x02,
		0x01, 0x02, 0x03, 0x04,
		'n', 'a', 'm', 'e',
	}...)

	pkts, err := Parse(buf)
	require.NoError(t, err)
	require.Equal(t, []Packet{
		ReceiverReport{SSRC: 1},
		Unknown{Type: 204, Length: 12},
	}, pkts)
}

func TestParseErrors(t *testing.T) {
	rr := mustMarshal(t, &rtcp.ReceiverReport{
		SSRC:    1,
		Reports: []rtcp.ReceptionReport{{SSRC: 2}},
	})

	overrun := append([]byte(nil), rr...)
	overrun[3]++

	for _, ca := range []struct {
		name string
		byts []byte
		err  string
	}{
		{
			"empty",
			nil,
			"empty packet",
		},
		{
			"length overrun",
			overrun,
			"sub-packet length 36 exceeds remaining 32 bytes",
		},
		{
			"length overrun in second sub-packet",
			append(append([]byte(nil), rr...), 0x80, 0xc9, 0x00, 0x07, 0x00, 0x00, 0x00, 0x01),
			"sub-packet length 32 exceeds remaining 8 bytes",
		},
		{
			"bye reason past end",
			[]byte{
				0x81, 0xcb, 0x00, 0x02,
				0x11, 0x22, 0x33, 0x44,
				0x0a, 'a', 'b', 'c',
			},
			"invalid BYE",
		},
		{
			"truncated sdes item",
			[]byte{
				0x81, 0xca, 0x00, 0x02,
				0x11, 0x22, 0x33, 0x44,
				0x01, 0x10, 'a', 'b',
			},
			"invalid SDES",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := Parse(ca.byts)
			require.ErrorContains(t, err, ca.err)
		})
	}
}

func TestStats(t *testing.T) {
	pkts, err := Parse(mustMarshal(t,
		&rtcp.ReceiverReport{
			SSRC: 0xAAAA,
			Reports: []rtcp.ReceptionReport{{
				SSRC:               0x10000001,
				FractionLost:       25,
				TotalLost:          7,
				LastSequenceNumber: 500,
				Jitter:             40,
			}},
		},
		&rtcp.SourceDescription{
			Chunks: []rtcp.SourceDescriptionChunk{{
				Source: 0xAAAA,
				Items:  []rtcp.SourceDescriptionItem{{Type: rtcp.SDESCNAME, Text: "player"}},
			}},
		},
		&rtcp.Goodbye{Sources: []uint32{0xAAAA}},
	))
	require.NoError(t, err)

	var s Stats
	s.Update(pkts)

	st, ok := s.Source(0x10000001)
	require.True(t, ok)
	require.Equal(t, SourceStats{
		SSRC:            0x10000001,
		ReporterSSRC:    0xAAAA,
		FractionLost:    25,
		CumulativeLost:  7,
		HighestSequence: 500,
		Jitter:          40,
		ReportCount:     1,
	}, st)

	m, ok := s.Member(0xAAAA)
	require.True(t, ok)
	require.Equal(t, Member{SSRC: 0xAAAA, CNAME: "player", Left: true}, m)

	_, ok = s.Source(0x99)
	require.False(t, ok)

	s.Reset()

	_, ok = s.Source(0x10000001)
	require.False(t, ok)
	_, ok = s.Member(0xAAAA)
	require.False(t, ok)

	s.Update(pkts)
	_, ok = s.Source(0x10000001)
	require.True(t, ok)
}

func TestSignExtend24(t *testing.T) {
	for _, ca := range []struct {
		in  uint32
		out int32
	}{
		{0, 0},
		{1, 1},
		{0x7FFFFF, 8388607},
		{0x800000, -8388608},
		{0xFFFFFF, -1},
	} {
		require.Equal(t, ca.out, signExtend24(ca.in))
	}
}
