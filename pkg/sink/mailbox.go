package sink

import (
	"context"
	"errors"
	"sync"
)

// ErrSlotBusy is returned when a frame is deposited while the previous one has not been sent yet.
var ErrSlotBusy = errors.New("frame slot is busy")

// Mode is the way frames are stored into the mailbox.
type Mode int

// modes.
const (
	// ModeByReference stores a reference to the caller buffer.
	// The caller must keep the buffer untouched until the frame is sent.
	ModeByReference Mode = iota

	// ModeByCopy copies frames into an internal buffer.
	// Frames bigger than the buffer are truncated.
	ModeByCopy
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeByCopy {
		return "by_copy"
	}
	return "by_ref"
}

type slotState int

const (
	slotIdle slotState = iota
	slotReady
	slotProcess
)

// Frame is a media frame.
type Frame struct {
	// frame content
	Data []byte

	// RTP timestamp, relative to the start of the stream
	Timestamp uint32

	// index of the producer buffer that holds the frame, echoed to the producer
	Index int
}

// Mailbox is a single-slot handoff between a frame producer and a delivery task.
// The slot cycles through IDLE, READY (deposited) and PROCESS (claimed).
type Mailbox struct {
	mode Mode
	buf  []byte

	mutex sync.Mutex
	state slotState
	frame Frame

	ready chan struct{}
	sent  chan struct{}
}

// NewMailbox allocates a Mailbox.
// bufferSize is used only in ModeByCopy.
func NewMailbox(mode Mode, bufferSize int) *Mailbox {
	m := &Mailbox{
		mode:  mode,
		ready: make(chan struct{}, 1),
		sent:  make(chan struct{}, 1),
	}

	if mode == ModeByCopy {
		m.buf = make([]byte, bufferSize)
	}

	return m
}

// Mode returns the storage mode.
func (m *Mailbox) Mode() Mode {
	return m.mode
}

// Deposit moves a frame into the slot.
// If the slot is not IDLE, the frame is dropped and ErrSlotBusy is returned.
// It returns the number of bytes that have been stored.
func (m *Mailbox) Deposit(data []byte, timestamp uint32, index int) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != slotIdle {
		return 0, ErrSlotBusy
	}

	if m.mode == ModeByCopy {
		n := copy(m.buf, data)
		data = m.buf[:n]
	}

	m.frame = Frame{
		Data:      data,
		Timestamp: timestamp,
		Index:     index,
	}
	m.state = slotReady

	select {
	case m.ready <- struct{}{}:
	default:
	}

	return len(data), nil
}

// Claim moves a READY frame into PROCESS and returns it.
func (m *Mailbox) Claim() (*Frame, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != slotReady {
		return nil, false
	}

	m.state = slotProcess
	f := m.frame
	return &f, true
}

// MarkSent moves a claimed frame back to IDLE.
func (m *Mailbox) MarkSent() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != slotProcess {
		return
	}

	m.state = slotIdle
	m.frame = Frame{}

	select {
	case m.sent <- struct{}{}:
	default:
	}
}

// Reset drops any pending frame.
func (m *Mailbox) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	wasBusy := m.state != slotIdle
	m.state = slotIdle
	m.frame = Frame{}

	select {
	case <-m.ready:
	default:
	}

	if wasBusy {
		select {
		case m.sent <- struct{}{}:
		default:
		}
	}
}

// FrameReady returns whether a frame is waiting to be claimed. It never blocks.
func (m *Mailbox) FrameReady() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state == slotReady
}

// FrameSent returns whether the slot is free. It never blocks.
func (m *Mailbox) FrameSent() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state == slotIdle
}

// Ready returns a channel that is notified when a frame is deposited.
// A notification may be stale, therefore Claim must always be checked.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// WaitFrameSent waits until the slot is free.
func (m *Mailbox) WaitFrameSent(ctx context.Context) error {
	for {
		if m.FrameSent() {
			return nil
		}

		select {
		case <-m.sent:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
