package runway

import (
	"log/slog"
	"time"

	"github.com/hugr-lab/runway-go/internal/recovery"
)

// reaper is the per-session safety net for abandoned results. It
// periodically scans the registry's weak references; a result no longer
// reachable from any caller is released through the same idempotent path
// an explicit Release would take.
//
// The reaper never owns anything and never decides correctness: every
// lifecycle guarantee holds even if it never runs. It only shortens how
// long a leaked handle pins arena memory.
type reaper struct {
	session  *Session
	interval time.Duration
	logger   *slog.Logger

	quit chan struct{}
	done chan struct{}
}

func newReaper(s *Session, interval time.Duration, logger *slog.Logger) *reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &reaper{
		session:  s,
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *reaper) start() {
	go r.run()
}

func (r *reaper) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ticker.C:
			r.reapOnce()
		}
	}
}

// reapOnce scans the registry once and releases every result whose weak
// reference has gone nil. Runs under the session lock, so it never races a
// close or an explicit release; a failure releasing one handle is logged
// and does not abort the pass for the others.
func (r *reaper) reapOnce() int {
	s := r.session

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return 0
	}

	reaped := 0
	for id, e := range s.handles {
		if e.ref.Value() != nil {
			continue
		}

		st := e.state
		recovery.Protect(r.logger, "reap", st.release)
		delete(s.handles, id)
		reaped++

		r.logger.Debug("Reaped abandoned result", "handle", id)
	}

	return reaped
}

// stop terminates the reaper and waits for an in-flight pass to finish.
// Safe to call while the session lock is not held.
func (r *reaper) stop() {
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
	<-r.done
}
