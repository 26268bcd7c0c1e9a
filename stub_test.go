package runway

import (
	"context"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/runway-go/plan"
	"github.com/hugr-lab/runway-go/transport"
)

// Test double for the executor boundary. Streams are produced by the open
// callback so individual tests control how (and from which allocator)
// result memory is leased.

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
}, nil)

type stubTransport struct {
	open func(mem memory.Allocator) (array.RecordReader, error)

	mu            sync.Mutex
	executed      []*plan.Plan
	commands      []*plan.Plan
	analyzed      []*plan.Plan
	cmdErr        error
	shutdownCalls int
}

func (t *stubTransport) Execute(_ context.Context, p *plan.Plan, mem memory.Allocator) (array.RecordReader, error) {
	t.mu.Lock()
	t.executed = append(t.executed, p)
	open := t.open
	t.mu.Unlock()

	if open == nil {
		return array.NewRecordReader(testSchema, nil)
	}
	return open(mem)
}

func (t *stubTransport) ExecuteCommand(_ context.Context, p *plan.Plan) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands = append(t.commands, p)
	return t.cmdErr
}

func (t *stubTransport) Analyze(_ context.Context, p *plan.Plan, mode transport.AnalyzeMode) (*transport.Metadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analyzed = append(t.analyzed, p)

	if mode == transport.AnalyzeExplain {
		return &transport.Metadata{Explain: "SEQ_SCAN"}, nil
	}
	return &transport.Metadata{Schema: testSchema}, nil
}

func (t *stubTransport) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shutdownCalls++
	return nil
}

// recordsOpener returns an open callback producing the given number of
// int64 batches, built from the session allocator so the arena accounts
// for them.
func recordsOpener(batches, rowsPerBatch int) func(memory.Allocator) (array.RecordReader, error) {
	return func(mem memory.Allocator) (array.RecordReader, error) {
		recs := make([]arrow.RecordBatch, 0, batches)
		for i := 0; i < batches; i++ {
			b := array.NewRecordBuilder(mem, testSchema)
			vals := make([]int64, rowsPerBatch)
			for j := range vals {
				vals[j] = int64(i*rowsPerBatch + j)
			}
			b.Field(0).(*array.Int64Builder).AppendValues(vals, nil)
			rec := b.NewRecordBatch()
			b.Release()
			recs = append(recs, rec)
		}

		reader, err := array.NewRecordReader(testSchema, recs)
		for _, rec := range recs {
			rec.Release()
		}
		return reader, err
	}
}

// leaseReader leases one raw buffer per Next call. It produces no record
// batches; it exists to exercise per-advance arena accounting, including
// exhaustion, with nothing allocated before the advancing call.
type leaseReader struct {
	mem       memory.Allocator
	leaseSize int
	remaining int
	bufs      [][]byte
}

func newLeaseOpener(leaseSize, leases int) func(memory.Allocator) (array.RecordReader, error) {
	return func(mem memory.Allocator) (array.RecordReader, error) {
		return &leaseReader{mem: mem, leaseSize: leaseSize, remaining: leases}, nil
	}
}

func (r *leaseReader) Next() bool {
	if r.remaining == 0 {
		return false
	}
	r.remaining--
	r.bufs = append(r.bufs, r.mem.Allocate(r.leaseSize))
	return true
}

func (r *leaseReader) RecordBatch() arrow.RecordBatch { return nil }
func (r *leaseReader) Record() arrow.RecordBatch      { return nil }
func (r *leaseReader) Schema() *arrow.Schema          { return testSchema }
func (r *leaseReader) Err() error                     { return nil }
func (r *leaseReader) Retain()                        {}

func (r *leaseReader) Release() {
	for _, b := range r.bufs {
		r.mem.Free(b)
	}
	r.bufs = nil
	r.remaining = 0
}

// newTestSession builds a session over a stub transport with a generous
// reap interval, so nothing reaps unless a test asks for it.
func newTestSession(tb interface{ Fatalf(string, ...any) }, client transport.Client) *Session {
	s, err := NewSessionBuilder().
		Transport(client).
		ReapInterval(time.Hour).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}
	return s
}
