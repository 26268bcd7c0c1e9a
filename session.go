package runway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"weak"

	"github.com/hugr-lab/runway-go/plan"
	"github.com/hugr-lab/runway-go/transport"
)

// sessionState tracks the lifecycle of an open session. The Building state
// of the lifecycle lives in SessionBuilder; a Session value always starts
// Open.
type sessionState int

const (
	stateOpen sessionState = iota
	stateClosing
	stateClosed
)

// Session is a handle to a remote (or in-process) query executor. It owns
// exactly one transport client, one arena, and a registry of live results.
//
// A session is safe for concurrent use: multiple goroutines may build and
// execute queries and advance distinct results. Close may be called from
// any goroutine and is idempotent.
type Session struct {
	client transport.Client
	arena  *Arena
	logger *slog.Logger
	reaper *reaper

	// mu guards state, the handle registry, and arena close. It is never
	// held across network waits.
	mu      sync.Mutex
	state   sessionState
	handles map[uint64]*handleEntry
	nextID  uint64

	closeOnce sync.Once
	closeErr  error
}

// handleEntry tracks one issued result: a weak reference for liveness
// detection and the strong state needed to release its leases after the
// caller drops the handle.
type handleEntry struct {
	ref   weak.Pointer[Result]
	state *resultState
}

// SQL returns a lazy query for a text statement without arguments.
// Nothing is sent until the query is collected.
func (s *Session) SQL(query string) *Query {
	p, err := plan.SQL(query, nil)
	return &Query{session: s, plan: p, err: err}
}

// SQLArgs returns a lazy query for a parameterized text statement.
// Argument names appear in the query as :name tokens; an argument that
// never appears fails the collecting call with plan.ErrInvalidOperation
// before anything is sent.
func (s *Session) SQLArgs(query string, args map[string]string) *Query {
	p, err := plan.SQL(query, args)
	return &Query{session: s, plan: p, err: err}
}

// Table returns a lazy query reading the named table.
func (s *Session) Table(name string) *Query {
	p, err := plan.Table(name)
	return &Query{session: s, plan: p, err: err}
}

// Range returns a lazy query generating the integer sequence [start, end)
// with the given step, in a column named "id". An optional partition count
// hints the executor's parallelism.
func (s *Session) Range(start, end, step int64, partitions ...int32) *Query {
	var parts int32
	if len(partitions) > 0 {
		parts = partitions[0]
	}
	p, err := plan.Range(start, end, step, parts)
	return &Query{session: s, plan: p, err: err}
}

// Exec runs a statement for its effect (DDL, settings) and drains the
// executor's acknowledgement, so remote errors surface here. No result
// resources are allocated.
func (s *Session) Exec(ctx context.Context, statement string) error {
	p, err := plan.Command(statement)
	if err != nil {
		return err
	}
	return s.executeForEffect(ctx, p)
}

// Arena returns the session's allocation domain. Useful for asserting
// outstanding-lease counters in tests and shutdown hooks.
func (s *Session) Arena() *Arena {
	return s.arena
}

// checkOpen returns ErrSessionClosed unless the session is Open.
func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return ErrSessionClosed
	}
	return nil
}

// execute dispatches a row-producing plan. The returned result is
// registered with the reaper before it is exposed to the caller, so a
// handle dropped immediately is still reclaimed.
func (s *Session) execute(ctx context.Context, p *plan.Plan) (*Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	// Network wait happens outside the session lock.
	reader, err := s.client.Execute(ctx, p, s.arena)
	if err != nil {
		return nil, err
	}

	st := &resultState{reader: reader, logger: s.logger}

	s.mu.Lock()
	if s.state != stateOpen {
		// Close won the race; don't leak a stream close can no longer see.
		s.mu.Unlock()
		st.release()
		return nil, ErrSessionClosed
	}

	s.nextID++
	r := &Result{session: s, id: s.nextID, state: st}
	s.handles[r.id] = &handleEntry{ref: weak.Make(r), state: st}
	s.mu.Unlock()

	s.logger.Debug("Result registered", "handle", r.id, "plan", p.String())
	return r, nil
}

// executeForEffect dispatches a command plan and drains the acknowledgement.
// Like execute, the state is re-checked after the network wait: a close
// that races the dispatch surfaces as ErrSessionClosed, not as whatever
// error the torn-down transport produced.
func (s *Session) executeForEffect(ctx context.Context, p *plan.Plan) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.client.ExecuteCommand(ctx, p)

	if stateErr := s.checkOpen(); stateErr != nil {
		return stateErr
	}
	return err
}

// analyze performs a read-only introspection request. Legal any time the
// session is Open; never allocates a result.
func (s *Session) analyze(ctx context.Context, p *plan.Plan, mode transport.AnalyzeMode) (*transport.Metadata, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	meta, err := s.client.Analyze(ctx, p, mode)

	if stateErr := s.checkOpen(); stateErr != nil {
		return nil, stateErr
	}
	return meta, err
}

// releaseHandle is the single release path shared by explicit Release
// calls, the reaper, and forced release at close. Lease return and
// deregistration happen under the same lock that guards arena close, so a
// close in progress never observes a registry inconsistent with the
// arena's accounting. Releasing an unknown handle is a no-op.
func (s *Session) releaseHandle(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.handles[id]
	if !ok {
		return
	}
	e.state.release()
	delete(s.handles, id)
}

// Close shuts the session down: the transport stops accepting plans, every
// outstanding result is force-released, then the arena is closed. It blocks
// until all forced releases complete, is safe to call from any goroutine,
// and is idempotent - concurrent callers all observe the same outcome.
func (s *Session) Close() error {
	s.closeOnce.Do(s.doClose)
	return s.closeErr
}

func (s *Session) doClose() {
	s.mu.Lock()
	s.state = stateClosing
	s.mu.Unlock()

	// Stop the reaper before forced release so no pass races it. The
	// reaper only briefly takes s.mu, so this cannot deadlock.
	s.reaper.stop()

	var errs []error

	// No new plans may be dispatched after shutdown.
	if err := s.client.Shutdown(); err != nil {
		s.logger.Error("Transport shutdown failed", "error", err)
		errs = append(errs, err)
	}

	s.mu.Lock()
	for id, e := range s.handles {
		e.state.release()
		delete(s.handles, id)
	}
	if err := s.arena.Close(); err != nil {
		// Outstanding leases at this point are a lifecycle bug; surface it.
		errs = append(errs, err)
	}
	s.state = stateClosed
	s.mu.Unlock()

	s.closeErr = errors.Join(errs...)
	s.logger.Debug("Session closed")
}
