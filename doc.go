// Package runway provides a client-side session API for remote Arrow
// Flight query executors compatible with the Airport protocol family.
//
// A session turns fluent operations into immutable logical plans, ships
// them to the executor, and returns cursors over streamed Arrow results
// whose buffers are leased from a per-session memory arena. The session
// guarantees that every leased byte is returned exactly once: explicitly
// via Release, through the background reaper when a handle is abandoned,
// or by Close, which force-releases everything outstanding before the
// arena is torn down.
//
// # Quick Start
//
// Query a remote executor in under 25 lines:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/hugr-lab/runway-go"
//	)
//
//	func main() {
//	    sess, err := runway.NewSessionBuilder().
//	        Remote("localhost:50051").
//	        Build()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer sess.Close()
//
//	    ctx := context.Background()
//	    res, err := sess.SQLArgs("SELECT * FROM users WHERE id = :id",
//	        map[string]string{"id": "42"}).Collect(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer res.Release()
//
//	    for res.Next() {
//	        fmt.Println(res.RecordBatch())
//	    }
//	    if err := res.Err(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// Build without a remote target to run against an in-process DuckDB
// executor - convenient for tests and local pipelines:
//
//	sess, err := runway.NewSessionBuilder().Build()
//
// # Session Lifecycle
//
// A session moves through Open, Closing, and Closed. Execution and
// introspection are legal only while Open. Close shuts down the transport
// (no new plans may be dispatched), force-releases every outstanding
// result, then closes the arena; it blocks until done and is safe to call
// concurrently. Operations on a closed session fail with ErrSessionClosed.
//
// # Memory Management
//
// Result batches live in arena-accounted memory. Callers should Release
// results deterministically (defer res.Release() after Collect). The
// per-session reaper reclaims results the caller dropped without
// releasing; it is a safety net against leaks, not a substitute for
// cleanup, and its latency carries no correctness weight.
//
// # Errors
//
// Malformed requests fail locally with plan.ErrInvalidOperation before any
// network interaction. Transport and executor errors propagate to the
// caller verbatim. An arena that cannot satisfy a lease fails the
// advancing call with ErrArenaExhausted.
//
// # Logging
//
// The package uses log/slog. Configure a logger or level through the
// builder; the default is slog.Default().
package runway
