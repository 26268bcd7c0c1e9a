package runway

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

func TestArenaAccounting(t *testing.T) {
	arena := NewArena(memory.NewGoAllocator(), 0)

	a := arena.Allocate(64)
	b := arena.Allocate(128)

	if got := arena.OutstandingBytes(); got != int64(len(a)+len(b)) {
		t.Errorf("Expected %d outstanding bytes, got %d", len(a)+len(b), got)
	}
	if got := arena.OutstandingLeases(); got != 2 {
		t.Errorf("Expected 2 leases, got %d", got)
	}

	arena.Free(a)
	if got := arena.OutstandingLeases(); got != 1 {
		t.Errorf("Expected 1 lease after free, got %d", got)
	}

	arena.Free(b)
	if got := arena.OutstandingBytes(); got != 0 {
		t.Errorf("Expected 0 outstanding bytes, got %d", got)
	}
}

func TestArenaCloseWithOutstandingLeases(t *testing.T) {
	arena := NewArena(memory.NewGoAllocator(), 0)
	buf := arena.Allocate(64)

	err := arena.Close()
	var leak ArenaLeakError
	if !errors.As(err, &leak) {
		t.Fatalf("Expected ArenaLeakError, got: %v", err)
	}
	if leak.Leases != 1 || leak.Bytes != int64(len(buf)) {
		t.Errorf("Unexpected leak report: %+v", leak)
	}

	// Returning the lease makes close acceptable.
	arena.Free(buf)
	if err := arena.Close(); err != nil {
		t.Fatalf("Expected clean close, got: %v", err)
	}

	// Closing an already-closed empty arena succeeds.
	if err := arena.Close(); err != nil {
		t.Fatalf("Expected idempotent close, got: %v", err)
	}
}

func TestArenaCapExceededPanics(t *testing.T) {
	arena := NewArena(memory.NewGoAllocator(), 100)

	buf := arena.Allocate(64)
	defer arena.Free(buf)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected panic when exceeding the cap")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrArenaExhausted) {
			t.Fatalf("Expected ErrArenaExhausted panic, got: %v", r)
		}
	}()
	arena.Allocate(64)
}

func TestArenaAllocateAfterClosePanics(t *testing.T) {
	arena := NewArena(memory.NewGoAllocator(), 0)
	if err := arena.Close(); err != nil {
		t.Fatal(err)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrArenaClosed) {
			t.Fatalf("Expected ErrArenaClosed panic, got: %v", r)
		}
	}()
	arena.Allocate(8)
}

func TestArenaReallocateAdjustsAccounting(t *testing.T) {
	arena := NewArena(memory.NewGoAllocator(), 0)

	buf := arena.Allocate(64)
	buf = arena.Reallocate(256, buf)

	if got := arena.OutstandingBytes(); got != 256 {
		t.Errorf("Expected 256 outstanding bytes after grow, got %d", got)
	}
	if got := arena.OutstandingLeases(); got != 1 {
		t.Errorf("Reallocate must not change the lease count, got %d", got)
	}

	arena.Free(buf)
	if got := arena.OutstandingBytes(); got != 0 {
		t.Errorf("Expected 0 outstanding bytes, got %d", got)
	}
}
