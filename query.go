package runway

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/runway-go/plan"
	"github.com/hugr-lab/runway-go/transport"
)

// Query is a lazily-evaluated operation wrapping an immutable plan.
// Building a query performs no I/O; a malformed request is held and
// surfaced by the dispatching call, before any network interaction.
// Queries are cheap values - build them ad hoc and discard them.
type Query struct {
	session *Session
	plan    *plan.Plan
	err     error
}

// Err returns the plan construction error, if any, without dispatching.
func (q *Query) Err() error {
	return q.err
}

// Plan returns the underlying plan, or nil if construction failed. Plans
// are immutable and safe to re-send.
func (q *Query) Plan() *plan.Plan {
	return q.plan
}

// Collect dispatches the query and returns a cursor over the streamed
// result. The result is registered with the session's reaper before it is
// returned; release it when done.
func (q *Query) Collect(ctx context.Context) (*Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	if !q.plan.ProducesRows() {
		return nil, fmt.Errorf("%w: command plans produce no rows", plan.ErrInvalidOperation)
	}
	return q.session.execute(ctx, q.plan)
}

// Schema returns the result schema of the query without executing it.
// Read-only; never allocates a result handle.
func (q *Query) Schema(ctx context.Context) (*arrow.Schema, error) {
	if q.err != nil {
		return nil, q.err
	}

	meta, err := q.session.analyze(ctx, q.plan, transport.AnalyzeSchema)
	if err != nil {
		return nil, err
	}
	return meta.Schema, nil
}

// Explain returns the executor's plan explanation text without executing
// the query. Read-only; never allocates a result handle.
func (q *Query) Explain(ctx context.Context) (string, error) {
	if q.err != nil {
		return "", q.err
	}

	meta, err := q.session.analyze(ctx, q.plan, transport.AnalyzeExplain)
	if err != nil {
		return "", err
	}
	return meta.Explain, nil
}
