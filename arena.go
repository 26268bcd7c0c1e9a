package runway

import (
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Arena is the single allocation domain of a session. Every result buffer
// is leased from it, and every leased byte must come back before it will
// accept a close.
//
// Arena implements memory.Allocator, so it plugs directly into the Arrow
// IPC reader: record batches decoded from a remote stream land in
// arena-accounted memory without any copying layer. Following the arrow
// allocator contract, allocation failures (cap exceeded, arena closed)
// panic; the result path recovers them into errors at the advance edge.
type Arena struct {
	mem memory.Allocator
	max int64

	mu          sync.Mutex
	outstanding int64
	leases      int64
	closed      bool
}

// ArenaLeakError is returned by Arena.Close when leases are still
// outstanding. It signals a lifecycle bug - some result handle was never
// released - and must not be swallowed.
type ArenaLeakError struct {
	Bytes  int64
	Leases int64
}

func (e ArenaLeakError) Error() string {
	return fmt.Sprintf("arena closed with %d outstanding leases (%d bytes)", e.Leases, e.Bytes)
}

// NewArena wraps an allocator with lease accounting. maxBytes of 0 means
// unlimited.
func NewArena(mem memory.Allocator, maxBytes int64) *Arena {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Arena{mem: mem, max: maxBytes}
}

// Allocate implements memory.Allocator. Panics with ErrArenaClosed after
// Close and with ErrArenaExhausted when the cap would be exceeded.
func (a *Arena) Allocate(size int) []byte {
	a.reserve(int64(size))
	return a.mem.Allocate(size)
}

// Reallocate implements memory.Allocator.
func (a *Arena) Reallocate(size int, b []byte) []byte {
	a.adjust(int64(size) - int64(len(b)))
	return a.mem.Reallocate(size, b)
}

// Free implements memory.Allocator.
func (a *Arena) Free(b []byte) {
	a.mu.Lock()
	a.outstanding -= int64(len(b))
	a.leases--
	a.mu.Unlock()

	a.mem.Free(b)
}

// reserve accounts for a new lease of size bytes.
func (a *Arena) reserve(size int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		panic(fmt.Errorf("%w: allocation after close", ErrArenaClosed))
	}
	if a.max > 0 && a.outstanding+size > a.max {
		panic(fmt.Errorf("%w: lease of %d bytes exceeds cap of %d (%d outstanding)",
			ErrArenaExhausted, size, a.max, a.outstanding))
	}

	a.outstanding += size
	a.leases++
}

// adjust accounts for an in-place lease resize.
func (a *Arena) adjust(delta int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		panic(fmt.Errorf("%w: reallocation after close", ErrArenaClosed))
	}
	if a.max > 0 && a.outstanding+delta > a.max {
		panic(fmt.Errorf("%w: resize of %+d bytes exceeds cap of %d (%d outstanding)",
			ErrArenaExhausted, delta, a.max, a.outstanding))
	}

	a.outstanding += delta
}

// OutstandingBytes returns the bytes currently leased out.
func (a *Arena) OutstandingBytes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outstanding
}

// OutstandingLeases returns the number of live leases.
func (a *Arena) OutstandingLeases() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leases
}

// Close marks the arena closed. Returns ArenaLeakError when leases are
// still outstanding - that is a lifecycle bug in the caller, not a
// condition to retry. Closing an already-closed empty arena succeeds.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.outstanding != 0 || a.leases != 0 {
		return ArenaLeakError{Bytes: a.outstanding, Leases: a.leases}
	}

	a.closed = true
	return nil
}
