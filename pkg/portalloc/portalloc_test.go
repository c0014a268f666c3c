package portalloc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatorAcquireRelease(t *testing.T) {
	for _, ca := range []struct {
		name string
		pool Pool
		base int
	}{
		{"multicast", PoolMulticast, DefaultMulticastBase},
		{"client", PoolClient, DefaultClientBase},
		{"server", PoolServer, DefaultServerBase},
	} {
		t.Run(ca.name, func(t *testing.T) {
			a := &Allocator{}
			err := a.Initialize()
			require.NoError(t, err)

			seen := make(map[int]struct{})

			for i := 0; i < SlotCount; i++ {
				port, err := a.Acquire(ca.pool)
				require.NoError(t, err)
				require.Equal(t, ca.base+i*2, port)
				require.Equal(t, 0, port%2)
				require.GreaterOrEqual(t, port, ca.base)
				require.Less(t, port+1, ca.base+SlotCount*2)

				_, ok := seen[port]
				require.False(t, ok)
				seen[port] = struct{}{}
			}

			require.Equal(t, uint8(0x0F), a.Bitmap(ca.pool))

			_, err = a.Acquire(ca.pool)
			require.Equal(t, ErrPoolExhausted{Pool: ca.pool}, err)

			a.Release(ca.pool, ca.base+4)
			require.Equal(t, uint8(0x0B), a.Bitmap(ca.pool))

			port, err := a.Acquire(ca.pool)
			require.NoError(t, err)
			require.Equal(t, ca.base+4, port)

			for p := range seen {
				a.Release(ca.pool, p)
			}
			require.Equal(t, uint8(0), a.Bitmap(ca.pool))
		})
	}
}

func TestAllocatorPoolsAreIndependent(t *testing.T) {
	a := &Allocator{}
	err := a.Initialize()
	require.NoError(t, err)

	for i := 0; i < SlotCount; i++ {
		_, err = a.Acquire(PoolServer)
		require.NoError(t, err)
	}

	port, err := a.Acquire(PoolClient)
	require.NoError(t, err)
	require.Equal(t, DefaultClientBase, port)
	require.Equal(t, uint8(0), a.Bitmap(PoolMulticast))
}

func TestAllocatorReleaseForeignPort(t *testing.T) {
	a := &Allocator{}
	err := a.Initialize()
	require.NoError(t, err)

	port, err := a.Acquire(PoolClient)
	require.NoError(t, err)

	a.Release(PoolClient, 5000)
	a.Release(PoolClient, port+1)
	a.Release(PoolClient, DefaultClientBase+SlotCount*2)
	a.Release(PoolServer, port)

	require.Equal(t, uint8(0x01), a.Bitmap(PoolClient))
}

func TestAllocatorInvalidBases(t *testing.T) {
	for _, ca := range []struct {
		name string
		a    Allocator
		err  string
	}{
		{
			"odd",
			Allocator{ClientBase: 51201},
			"base of the client pool must be even",
		},
		{
			"overlap",
			Allocator{ClientBase: 51402},
			"server pool overlaps with client pool",
		},
		{
			"range",
			Allocator{ServerBase: 65534},
			"base of the server pool is out of range",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			err := ca.a.Initialize()
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestAllocatorConcurrent(t *testing.T) {
	a := &Allocator{}
	err := a.Initialize()
	require.NoError(t, err)

	var wg sync.WaitGroup
	ports := make(chan int, SlotCount*2)

	for i := 0; i < SlotCount*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err2 := a.Acquire(PoolServer)
			if err2 == nil {
				ports <- port
			}
		}()
	}

	wg.Wait()
	close(ports)

	seen := make(map[int]struct{})
	for port := range ports {
		_, ok := seen[port]
		require.False(t, ok)
		seen[port] = struct{}{}
	}
	require.Len(t, seen, SlotCount)
}
