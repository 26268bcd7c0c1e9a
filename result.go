package runway

import (
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hugr-lab/runway-go/internal/recovery"
)

// Result is a cursor over a streamed query result. Batches are pulled
// lazily from the executor; their buffers are leased from the session
// arena and returned when the result is released.
//
// Iterate with Next/RecordBatch and check Err afterwards:
//
//	res, err := sess.Table("users").Collect(ctx)
//	if err != nil { ... }
//	defer res.Release()
//	for res.Next() {
//	    batch := res.RecordBatch()
//	    ...
//	}
//	if err := res.Err(); err != nil { ... }
//
// Release is idempotent. A result that is dropped without Release is
// reclaimed by the session's reaper, but callers should not rely on that:
// it exists to stop leaks, not to replace cleanup.
//
// A Result may be advanced by one goroutine at a time; distinct results
// are fully independent.
type Result struct {
	session *Session
	id      uint64
	state   *resultState
}

// resultState carries the releasable part of a result. It is held strongly
// by the session registry, so the reaper can return leases after the
// caller's Result value becomes unreachable.
type resultState struct {
	logger *slog.Logger

	mu       sync.Mutex
	reader   array.RecordReader
	released bool
	err      error
}

// release returns the stream's arena leases. Idempotent: releasing twice
// is a no-op, not an error.
func (st *resultState) release() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.released {
		return
	}
	st.released = true
	st.reader.Release()
}

// Next advances to the next record batch. It returns false at end of
// stream, after an error, or once the result is released; Err reports
// which. Advancing may lease additional arena memory for the incoming
// batch - when the arena cannot satisfy the lease, Next fails and Err
// returns ErrArenaExhausted.
func (r *Result) Next() bool {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.released || st.err != nil {
		return false
	}

	var ok bool
	// Arena cap violations surface as allocator panics inside the decoder;
	// recover them here so the caller sees an error, not a crash.
	err := recovery.ToError(st.logger, "advance", func() error {
		ok = st.reader.Next()
		return nil
	})
	if err != nil {
		st.err = err
		return false
	}
	if !ok {
		st.err = st.reader.Err()
	}
	return ok
}

// RecordBatch returns the current batch. Valid until the next call to
// Next or Release; the result retains ownership, callers must not release
// the batch themselves. Returns nil if the result was released or Next has
// not produced a batch.
func (r *Result) RecordBatch() arrow.RecordBatch {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.released {
		return nil
	}
	return st.reader.RecordBatch()
}

// Schema returns the stream schema, or nil after release.
func (r *Result) Schema() *arrow.Schema {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.released {
		return nil
	}
	return st.reader.Schema()
}

// Err returns the first error encountered while advancing. Transport
// errors are passed through verbatim. Returns nil at a clean end of
// stream.
func (r *Result) Err() error {
	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Release returns every byte the result leased from the arena and removes
// it from the session registry and the reaper's watch list. Idempotent;
// releasing after session close is a no-op.
func (r *Result) Release() {
	r.session.releaseHandle(r.id)
}
