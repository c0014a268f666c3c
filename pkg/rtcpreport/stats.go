package rtcpreport

import (
	"sync"

	"github.com/pion/rtcp"
)

// SourceStats is the last reception state of a media source, as seen by a receiver.
type SourceStats struct {
	SSRC            uint32
	ReporterSSRC    uint32
	FractionLost    uint8
	CumulativeLost  int32
	HighestSequence uint32
	Jitter          uint32
	LastSR          uint32
	ReportCount     uint64
}

// Member is a participant that sent SDES or BYE packets.
type Member struct {
	SSRC   uint32
	CNAME  string
	Left   bool
	Reason string
}

// Stats folds parsed reports into per-SSRC tables.
// It is safe for concurrent use.
type Stats struct {
	mutex   sync.Mutex
	sources map[uint32]*SourceStats
	members map[uint32]*Member
}

func (s *Stats) member(ssrc uint32) *Member {
	if s.members == nil {
		s.members = make(map[uint32]*Member)
	}

	m, ok := s.members[ssrc]
	if !ok {
		m = &Member{SSRC: ssrc}
		s.members[ssrc] = m
	}
	return m
}

func (s *Stats) applyReports(reporter uint32, reports []ReceptionReport) {
	if s.sources == nil {
		s.sources = make(map[uint32]*SourceStats)
	}

	for _, r := range reports {
		st, ok := s.sources[r.SSRC]
		if !ok {
			st = &SourceStats{SSRC: r.SSRC}
			s.sources[r.SSRC] = st
		}

		st.ReporterSSRC = reporter
		st.FractionLost = r.FractionLost
		st.CumulativeLost = r.CumulativeLost
		st.HighestSequence = r.HighestSequence
		st.Jitter = r.Jitter
		st.LastSR = r.LastSR
		st.ReportCount++
	}
}

// Update folds a parsed compound packet.
func (s *Stats) Update(pkts []Packet) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, pkt := range pkts {
		switch pkt := pkt.(type) {
		case SenderReport:
			s.applyReports(pkt.SSRC, pkt.Reports)

		case ReceiverReport:
			s.applyReports(pkt.SSRC, pkt.Reports)

		case SourceDescription:
			for _, c := range pkt.Chunks {
				for _, it := range c.Items {
					if it.Type == rtcp.SDESCNAME {
						s.member(c.SSRC).CNAME = it.Text
					}
				}
			}

		case Goodbye:
			for _, ssrc := range pkt.Sources {
				m := s.member(ssrc)
				m.Left = true
				m.Reason = pkt.Reason
			}
		}
	}
}

// Reset drops every source and member.
func (s *Stats) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sources = nil
	s.members = nil
}

// Source returns the reception state of a media source.
func (s *Stats) Source(ssrc uint32) (SourceStats, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	st, ok := s.sources[ssrc]
	if !ok {
		return SourceStats{}, false
	}
	return *st, true
}

// Member returns a participant.
func (s *Stats) Member(ssrc uint32) (Member, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	m, ok := s.members[ssrc]
	if !ok {
		return Member{}, false
	}
	return *m, true
}
