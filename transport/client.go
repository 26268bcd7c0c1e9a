// Package transport defines the executor boundary of a runway session and
// provides two implementations: a gRPC Arrow Flight client for remote
// Airport-style executors and an in-process DuckDB executor used when no
// remote target is configured.
//
// The session layer treats a Client as a black box: errors returned here
// propagate to callers verbatim, and the session never retries.
package transport

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/runway-go/plan"
)

// AnalyzeMode selects what an Analyze call returns.
type AnalyzeMode int

const (
	// AnalyzeSchema requests the result schema of a plan without executing it.
	AnalyzeSchema AnalyzeMode = iota
	// AnalyzeExplain requests the executor's plan explanation text.
	AnalyzeExplain
)

// Metadata is the result of an Analyze call. Schema is set for
// AnalyzeSchema, Explain for AnalyzeExplain.
type Metadata struct {
	Schema  *arrow.Schema
	Explain string
}

// Client executes plans against a query executor.
//
// Implementations MUST be safe for concurrent use: a session issues
// Execute calls from multiple goroutines. Streams returned by Execute are
// independent; each is advanced and released by exactly one caller.
type Client interface {
	// Execute dispatches a row-producing plan and returns the result stream.
	// Record batch buffers are allocated from mem, so the caller's arena
	// accounts for every byte the stream holds. The caller must Release
	// the reader.
	Execute(ctx context.Context, p *plan.Plan, mem memory.Allocator) (array.RecordReader, error)

	// ExecuteCommand dispatches a plan executed for effect and drains the
	// executor's acknowledgement fully, so remote errors surface here
	// synchronously. No resources are allocated.
	ExecuteCommand(ctx context.Context, p *plan.Plan) error

	// Analyze performs a read-only introspection request (result schema or
	// plan explanation) without executing the plan.
	Analyze(ctx context.Context, p *plan.Plan, mode AnalyzeMode) (*Metadata, error)

	// Shutdown closes the connection to the executor. No calls may follow.
	Shutdown() error
}
