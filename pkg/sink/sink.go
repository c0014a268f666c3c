// Package sink contains the send side of a media stream: frame handoff, RTP counters and codecs.
package sink

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/rtp"
)

const (
	defaultBufferSize = 256 * 1024
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// PacketWriter writes RTP packets to the network.
type PacketWriter interface {
	WritePacket(pkt *rtp.Packet) error
}

// Stats are the counters of a sink.
type Stats struct {
	SSRC           uint32
	SequenceNumber uint16
	Timestamp      uint32
	PacketCount    uint32
	OctetCount     uint32
	FrameCount     uint32
}

// Sink is the send side of a media stream.
type Sink struct {
	// codec of the stream.
	Codec Codec

	// frame storage mode (optional).
	// It defaults to ModeByReference.
	Mode Mode

	// size of the internal buffer in ModeByCopy (optional).
	// It defaults to 256KiB.
	BufferSize int

	// logger (optional).
	// It defaults to slog.Default().
	Logger *slog.Logger

	mailbox *Mailbox
	id      int

	mutex          sync.Mutex
	ssrc           uint32
	sequenceNumber uint16
	timeOffset     uint32
	timestamp      uint32
	packetCount    uint32
	octetCount     uint32
	frameCount     uint32
}

// New allocates a Sink with the codec with the given name and default settings.
func New(codecName string) (*Sink, error) {
	c, err := CodecByName(codecName)
	if err != nil {
		return nil, err
	}

	return NewWithCodec(c)
}

// NewWithCodec allocates a Sink with the given codec and default settings.
func NewWithCodec(c Codec) (*Sink, error) {
	s := &Sink{Codec: c}
	err := s.Initialize()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Initialize initializes a Sink.
func (s *Sink) Initialize() error {
	if s.Codec == nil {
		return fmt.Errorf("codec not provided")
	}
	if s.BufferSize == 0 {
		s.BufferSize = defaultBufferSize
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	s.mailbox = NewMailbox(s.Mode, s.BufferSize)
	return nil
}

// SetID sets the index of the stream inside the session.
func (s *Sink) SetID(id int) {
	s.id = id
}

// ID returns the index of the stream inside the session.
func (s *Sink) ID() int {
	return s.id
}

// PayloadType returns the RTP payload type of the stream.
func (s *Sink) PayloadType() uint8 {
	return s.Codec.PayloadType(s.id)
}

// Mailbox returns the frame mailbox.
func (s *Sink) Mailbox() *Mailbox {
	return s.mailbox
}

// Deposit hands a frame to the delivery task.
// The frame is dropped with ErrSlotBusy when the previous one is still pending.
func (s *Sink) Deposit(data []byte, timestamp uint32, index int) error {
	n, err := s.mailbox.Deposit(data, timestamp, index)
	if err != nil {
		return err
	}

	if n < len(data) {
		s.Logger.Debug("frame truncated",
			"codec", s.Codec.Name(),
			"size", len(data),
			"stored", n)
	}

	return nil
}

// Open prepares the sink for a new delivery, with the given SSRC.
// Sequence number and timestamp offset are randomized, counters are reset
// and codec state is allocated.
func (s *Sink) Open(ssrc uint32) error {
	seq, err := randUint32()
	if err != nil {
		return err
	}

	offset, err := randUint32()
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.ssrc = ssrc
	s.sequenceNumber = uint16(seq)
	s.timeOffset = offset
	s.timestamp = offset
	s.packetCount = 0
	s.octetCount = 0
	s.frameCount = 0
	s.mutex.Unlock()

	s.mailbox.Reset()

	return s.Codec.InitExtra(s)
}

// Close releases codec state.
func (s *Sink) Close() {
	s.Codec.TeardownExtra(s)
	s.mailbox.Reset()
}

// SSRC returns the SSRC of the stream.
func (s *Sink) SSRC() uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ssrc
}

// SequenceNumber returns the sequence number of the next packet.
func (s *Sink) SequenceNumber() uint16 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sequenceNumber
}

// Stats returns the counters of the sink.
func (s *Sink) Stats() Stats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return Stats{
		SSRC:           s.ssrc,
		SequenceNumber: s.sequenceNumber,
		Timestamp:      s.timestamp,
		PacketCount:    s.packetCount,
		OctetCount:     s.octetCount,
		FrameCount:     s.frameCount,
	}
}

// SendFrame encodes a frame with the codec and writes the resulting packets.
func (s *Sink) SendFrame(f *Frame, w PacketWriter) error {
	return s.Codec.SendFrame(s, f, w)
}

// WritePackets stamps packets of a frame with the frame timestamp,
// writes them and updates counters.
func (s *Sink) WritePackets(pkts []*rtp.Packet, timestamp uint32, w PacketWriter) error {
	for _, pkt := range pkts {
		err := s.writePacket(pkt, timestamp, w)
		if err != nil {
			return err
		}
	}

	s.frameWritten()
	return nil
}

func (s *Sink) writePacket(pkt *rtp.Packet, timestamp uint32, w PacketWriter) error {
	s.mutex.Lock()
	pkt.Timestamp = s.timeOffset + timestamp
	s.sequenceNumber = pkt.SequenceNumber + 1
	s.mutex.Unlock()

	err := w.WritePacket(pkt)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.timestamp = pkt.Timestamp
	s.packetCount++
	s.octetCount += uint32(len(pkt.Payload))
	s.mutex.Unlock()

	return nil
}

func (s *Sink) frameWritten() {
	s.mutex.Lock()
	s.frameCount++
	s.mutex.Unlock()
}
