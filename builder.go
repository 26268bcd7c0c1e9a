package runway

import (
	"log/slog"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/runway-go/auth"
	"github.com/hugr-lab/runway-go/transport"
)

// SessionBuilder accumulates session configuration. It is a value type:
// every method returns a new builder, so partially-configured builders can
// be shared and forked freely, and nothing is allocated until Build.
//
// Example:
//
//	sess, err := runway.NewSessionBuilder().
//	    Remote("executor:50051").
//	    Token("secret-api-key").
//	    Build()
type SessionBuilder struct {
	cfg Config
}

// NewSessionBuilder creates a builder in its zero state. Building without
// further configuration yields a session against an in-process executor.
func NewSessionBuilder() SessionBuilder {
	return SessionBuilder{}
}

// Remote sets the remote executor endpoint (e.g., "executor:50051").
func (b SessionBuilder) Remote(target string) SessionBuilder {
	b.cfg.Target = target
	return b
}

// Local sets the database file for the in-process executor. Only
// meaningful when no remote target is configured.
func (b SessionBuilder) Local(path string) SessionBuilder {
	b.cfg.LocalPath = path
	return b
}

// Token sets a fixed bearer token for the remote connection.
func (b SessionBuilder) Token(token string) SessionBuilder {
	b.cfg.Token = auth.StaticToken(token)
	return b
}

// TokenProvider sets a rotating token source for the remote connection.
func (b SessionBuilder) TokenProvider(p auth.TokenProvider) SessionBuilder {
	b.cfg.Token = p
	return b
}

// Transport injects a custom executor client, bypassing target resolution.
func (b SessionBuilder) Transport(c transport.Client) SessionBuilder {
	b.cfg.Transport = c
	return b
}

// Allocator sets the allocator backing the session arena.
func (b SessionBuilder) Allocator(mem memory.Allocator) SessionBuilder {
	b.cfg.Allocator = mem
	return b
}

// MaxArenaBytes caps the arena's outstanding bytes; 0 means unlimited.
func (b SessionBuilder) MaxArenaBytes(n int64) SessionBuilder {
	b.cfg.MaxArenaBytes = n
	return b
}

// Logger sets the logger for internal logging.
func (b SessionBuilder) Logger(l *slog.Logger) SessionBuilder {
	b.cfg.Logger = l
	return b
}

// LogLevel sets the logging level for the default logger. Ignored when a
// pre-configured Logger is supplied.
func (b SessionBuilder) LogLevel(level slog.Level) SessionBuilder {
	b.cfg.LogLevel = &level
	return b
}

// MaxMessageSize sets the maximum gRPC message size in bytes.
func (b SessionBuilder) MaxMessageSize(n int) SessionBuilder {
	b.cfg.MaxMessageSize = n
	return b
}

// ReapInterval sets the reaper's scan cadence.
func (b SessionBuilder) ReapInterval(d time.Duration) SessionBuilder {
	b.cfg.ReapInterval = d
	return b
}

// DialOptions replaces the extra gRPC dial options for the remote
// connection.
func (b SessionBuilder) DialOptions(opts ...grpc.DialOption) SessionBuilder {
	b.cfg.DialOptions = opts
	return b
}

// Build finalizes the configuration and opens the session: the transport
// is resolved (remote target, injected client, or the in-process default,
// in that order of preference), the arena is created, and the reaper
// starts. The builder remains usable afterwards; each Build call produces
// an independent session.
func (b SessionBuilder) Build() (*Session, error) {
	cfg := b.cfg

	logger := cfg.Logger
	if logger == nil {
		if cfg.LogLevel != nil {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: *cfg.LogLevel,
			}))
		} else {
			logger = slog.Default()
		}
	}

	client := cfg.Transport
	if client == nil {
		var err error
		if cfg.Target != "" {
			client, err = transport.DialFlight(transport.FlightConfig{
				Address:        cfg.Target,
				Token:          cfg.Token,
				MaxMessageSize: cfg.MaxMessageSize,
				DialOptions:    cfg.DialOptions,
				Logger:         logger,
			})
		} else {
			client, err = transport.OpenLocal(cfg.LocalPath, logger)
		}
		if err != nil {
			return nil, err
		}
	}

	s := &Session{
		client:  client,
		arena:   NewArena(cfg.Allocator, cfg.MaxArenaBytes),
		logger:  logger,
		handles: make(map[uint64]*handleEntry),
	}
	s.reaper = newReaper(s, cfg.ReapInterval, logger)
	s.reaper.start()

	logger.Debug("Session opened", "target", cfg.Target)
	return s, nil
}
