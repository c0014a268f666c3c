package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailboxCycle(t *testing.T) {
	m := NewMailbox(ModeByReference, 0)
	require.True(t, m.FrameSent())
	require.False(t, m.FrameReady())

	_, ok := m.Claim()
	require.False(t, ok)

	data := []byte{1, 2, 3}
	n, err := m.Deposit(data, 3000, 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, m.FrameReady())
	require.False(t, m.FrameSent())

	select {
	case <-m.Ready():
	default:
		t.Fatal("notification not received")
	}

	_, err = m.Deposit([]byte{4}, 0, 0)
	require.ErrorIs(t, err, ErrSlotBusy)

	f, ok := m.Claim()
	require.True(t, ok)
	require.Equal(t, &Frame{Data: data, Timestamp: 3000, Index: 2}, f)
	require.False(t, m.FrameReady())
	require.False(t, m.FrameSent())

	// claimed frames can't be replaced
	_, err = m.Deposit([]byte{4}, 0, 0)
	require.ErrorIs(t, err, ErrSlotBusy)

	m.MarkSent()
	require.True(t, m.FrameSent())

	_, err = m.Deposit([]byte{4}, 0, 0)
	require.NoError(t, err)
}

func TestMailboxByReference(t *testing.T) {
	m := NewMailbox(ModeByReference, 0)

	data := []byte{1, 2, 3, 4}
	_, err := m.Deposit(data, 0, 0)
	require.NoError(t, err)

	data[0] = 9

	f, ok := m.Claim()
	require.True(t, ok)
	require.Equal(t, []byte{9, 2, 3, 4}, f.Data)
}

func TestMailboxByCopy(t *testing.T) {
	for _, ca := range []struct {
		name   string
		size   int
		data   []byte
		stored []byte
	}{
		{
			"fits",
			4,
			[]byte{1, 2, 3},
			[]byte{1, 2, 3},
		},
		{
			"truncated",
			2,
			[]byte{1, 2, 3},
			[]byte{1, 2},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			m := NewMailbox(ModeByCopy, ca.size)

			data := append([]byte(nil), ca.data...)
			n, err := m.Deposit(data, 0, 0)
			require.NoError(t, err)
			require.Equal(t, len(ca.stored), n)

			data[0] = 9

			f, ok := m.Claim()
			require.True(t, ok)
			require.Equal(t, ca.stored, f.Data)
		})
	}
}

func TestMailboxWaitFrameSent(t *testing.T) {
	m := NewMailbox(ModeByReference, 0)

	err := m.WaitFrameSent(context.Background())
	require.NoError(t, err)

	_, err = m.Deposit([]byte{1}, 0, 0)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, ok := m.Claim()
		if ok {
			m.MarkSent()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = m.WaitFrameSent(ctx)
	require.NoError(t, err)
	require.True(t, m.FrameSent())
}

func TestMailboxWaitFrameSentCanceled(t *testing.T) {
	m := NewMailbox(ModeByReference, 0)

	_, err := m.Deposit([]byte{1}, 0, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = m.WaitFrameSent(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxReset(t *testing.T) {
	m := NewMailbox(ModeByReference, 0)

	_, err := m.Deposit([]byte{1}, 0, 0)
	require.NoError(t, err)

	m.Reset()
	require.True(t, m.FrameSent())

	select {
	case <-m.Ready():
		t.Fatal("unexpected notification")
	default:
	}
}
