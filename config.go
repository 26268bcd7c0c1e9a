package runway

import (
	"errors"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/runway-go/auth"
	"github.com/hugr-lab/runway-go/transport"
)

// DefaultReapInterval is the cadence of the background reaper when the
// builder does not override it.
const DefaultReapInterval = 30 * time.Second

// Config contains configuration for a runway session. It is accumulated by
// a SessionBuilder and frozen at Build; mutate only through the builder.
type Config struct {
	// Target is the remote executor endpoint (e.g., "localhost:50051").
	// OPTIONAL: If empty and no Transport is set, plans execute against an
	// in-process DuckDB instance.
	Target string

	// LocalPath is the database file for the in-process executor.
	// OPTIONAL: Empty means in-memory. Ignored when Target or Transport is set.
	LocalPath string

	// Token provides bearer tokens for the remote connection.
	// OPTIONAL: If nil, requests are unauthenticated.
	Token auth.TokenProvider

	// Transport overrides the executor client entirely.
	// OPTIONAL: Intended for tests and custom protocols. When set, Target,
	// LocalPath, Token, MaxMessageSize and DialOptions are ignored.
	Transport transport.Client

	// Allocator backs the session arena.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// MaxArenaBytes caps the bytes the arena may have outstanding.
	// OPTIONAL: 0 means unlimited. Exceeding the cap fails the advancing
	// call with ErrArenaExhausted.
	MaxArenaBytes int64

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int

	// ReapInterval is how often the reaper scans for abandoned results.
	// OPTIONAL: DefaultReapInterval if 0. The reaper is a safety net;
	// correctness never depends on this cadence.
	ReapInterval time.Duration

	// DialOptions are appended to the gRPC options derived from the fields
	// above. OPTIONAL.
	DialOptions []grpc.DialOption
}

// Standard errors returned by the runway package.
var (
	// ErrSessionClosed indicates an operation was attempted on a closed
	// session. Always surfaced, never silently ignored.
	ErrSessionClosed = errors.New("session closed")

	// ErrArenaExhausted indicates the arena cannot satisfy a lease. It is
	// surfaced as part of the failing advance.
	ErrArenaExhausted = errors.New("arena exhausted")

	// ErrArenaClosed indicates an allocation was attempted on a closed arena.
	ErrArenaClosed = errors.New("arena closed")
)
