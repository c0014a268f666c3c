// Package portalloc contains an allocator of RTP/RTCP UDP port pairs.
package portalloc

import (
	"fmt"
	"sync"
)

// SlotCount is the number of port pairs available in each pool.
const SlotCount = 4

// default pool bases.
const (
	DefaultMulticastBase = 51100
	DefaultClientBase    = 51200
	DefaultServerBase    = 51400
)

// Pool identifies a port pool.
type Pool int

// pools.
const (
	PoolMulticast Pool = iota
	PoolClient
	PoolServer
)

var poolLabels = map[Pool]string{
	PoolMulticast: "multicast",
	PoolClient:    "client",
	PoolServer:    "server",
}

// String implements fmt.Stringer.
func (p Pool) String() string {
	if l, ok := poolLabels[p]; ok {
		return l
	}
	return "unknown"
}

// ErrPoolExhausted is returned when all the slots of a pool are taken.
type ErrPoolExhausted struct {
	Pool Pool
}

// Error implements the error interface.
func (e ErrPoolExhausted) Error() string {
	return fmt.Sprintf("%v port pool is exhausted", e.Pool)
}

type pool struct {
	base int

	mutex  sync.Mutex
	bitmap uint8
}

func (p *pool) acquire() (int, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for i := 0; i < SlotCount; i++ {
		if (p.bitmap & (1 << i)) == 0 {
			p.bitmap |= 1 << i
			return p.base + i*2, true
		}
	}

	return 0, false
}

func (p *pool) release(port int) {
	slot := (port - p.base) / 2
	if port < p.base || (port-p.base)%2 != 0 || slot >= SlotCount {
		return
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.bitmap &^= 1 << slot
}

func (p *pool) snapshot() uint8 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.bitmap
}

// Allocator hands out even/odd port pairs from three disjoint pools.
// It is safe for concurrent use.
type Allocator struct {
	// base of the multicast pool.
	// It defaults to 51100.
	MulticastBase int

	// base of the client unicast pool.
	// It defaults to 51200.
	ClientBase int

	// base of the server unicast pool.
	// It defaults to 51400.
	ServerBase int

	pools [3]*pool
}

// Initialize initializes the Allocator.
func (a *Allocator) Initialize() error {
	if a.MulticastBase == 0 {
		a.MulticastBase = DefaultMulticastBase
	}
	if a.ClientBase == 0 {
		a.ClientBase = DefaultClientBase
	}
	if a.ServerBase == 0 {
		a.ServerBase = DefaultServerBase
	}

	bases := []int{a.MulticastBase, a.ClientBase, a.ServerBase}

	for i, b := range bases {
		if (b % 2) != 0 {
			return fmt.Errorf("base of the %v pool must be even", Pool(i))
		}
		if b <= 0 || (b+SlotCount*2) > 65535 {
			return fmt.Errorf("base of the %v pool is out of range", Pool(i))
		}

		for j, other := range bases[:i] {
			if b < other+SlotCount*2 && other < b+SlotCount*2 {
				return fmt.Errorf("%v pool overlaps with %v pool", Pool(i), Pool(j))
			}
		}
	}

	for i, b := range bases {
		a.pools[i] = &pool{base: b}
	}

	return nil
}

func (a *Allocator) pool(p Pool) *pool {
	if p < PoolMulticast || p > PoolServer {
		return nil
	}
	return a.pools[p]
}

// Acquire takes the first free pair of a pool and returns its even (RTP) port.
// The odd port of the pair is reserved for RTCP.
func (a *Allocator) Acquire(p Pool) (int, error) {
	pl := a.pool(p)
	if pl == nil {
		return 0, fmt.Errorf("invalid pool %d", p)
	}

	port, ok := pl.acquire()
	if !ok {
		return 0, ErrPoolExhausted{Pool: p}
	}

	return port, nil
}

// Release gives back a pair identified by its even port.
// Ports that do not belong to the pool are ignored.
func (a *Allocator) Release(p Pool, port int) {
	pl := a.pool(p)
	if pl == nil {
		return
	}
	pl.release(port)
}

// Bitmap returns the occupancy bitmap of a pool.
// Bit i is set when the pair starting at base+2*i is taken.
func (a *Allocator) Bitmap(p Pool) uint8 {
	pl := a.pool(p)
	if pl == nil {
		return 0
	}
	return pl.snapshot()
}
