package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"golang.org/x/sync/semaphore"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/metrics"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Guard defaults.
const (
	DefaultTimeout     = 180 * time.Second
	DefaultErrorLimit  = 512
	DefaultMaxInFlight = 64
)

// Cycle is one unit of guarded work on a session copy. The copy is kept
// only when the cycle returns nil.
type Cycle func(ctx context.Context, s *session.Session, ev types.Event) error

// GuardConfig bounds cycle execution.
type GuardConfig struct {
	Timeout     time.Duration
	ErrorLimit  int   // display width of error text shown to users
	MaxInFlight int64 // cycles running at once, across users
}

// Guard runs cycles with a hard deadline, one at a time per user.
type Guard struct {
	sessions *session.Store
	out      types.Responder
	timeout  time.Duration
	limit    int
	sem      *semaphore.Weighted
}

// NewGuard creates a guard. Zero config fields take the defaults.
func NewGuard(cfg GuardConfig, sessions *session.Store, out types.Responder) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ErrorLimit <= 0 {
		cfg.ErrorLimit = DefaultErrorLimit
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	return &Guard{
		sessions: sessions,
		out:      out,
		timeout:  cfg.Timeout,
		limit:    cfg.ErrorLimit,
		sem:      semaphore.NewWeighted(cfg.MaxInFlight),
	}
}

type result struct {
	err error
}

// Run executes cycle for ev. Failures are reported to the user and
// returned; the live session is only replaced on success.
//
// On timeout the cycle goroutine is abandoned, not killed. Its session
// copy is discarded and the user's gate is released so a retry starts
// from the pre-timeout state.
func (g *Guard) Run(ctx context.Context, ev types.Event, cycle Cycle) (err error) {
	id := ev.UserID
	cycleID := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			g.fail(ctx, ev, cycleID, err)
		}
	}()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return g.deadline(err)
	}
	release, err := g.sessions.Acquire(ctx, id)
	if err != nil {
		g.sem.Release(1)
		return g.deadline(err)
	}
	defer release()

	s := g.sessions.Get(id)
	done := make(chan result, 1)
	metrics.CyclesInFlight.Inc()
	go func() {
		defer metrics.CyclesInFlight.Dec()
		defer g.sem.Release(1)
		done <- result{err: safe(ctx, cycle, s, ev)}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		g.sessions.Put(s)
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		L_trace("dispatch: cycle done", "user", id, "cycle", cycleID, "state", s.State, "elapsed", time.Since(start))
		return nil
	case <-ctx.Done():
		return g.deadline(ctx.Err())
	}
}

func (g *Guard) deadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", types.ErrTimeout, g.timeout)
	}
	return err
}

// fail records the event time on the live session and notifies the user.
func (g *Guard) fail(ctx context.Context, ev types.Event, cycleID string, err error) {
	g.sessions.Update(ev.UserID, func(live *session.Session) {
		live.Scratch.LastEvent = ev.Time
	})

	if errors.Is(err, types.ErrTimeout) {
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeTimeout).Inc()
		L_error("dispatch: cycle timed out", "user", ev.UserID, "cycle", cycleID, "kind", ev.Kind, "timeout", g.timeout)
	} else {
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		L_error("dispatch: cycle failed", "user", ev.UserID, "cycle", cycleID, "kind", ev.Kind, "error", err)
	}

	text := runewidth.Truncate(types.UserMessage(err), g.limit, "...")
	if sendErr := g.out.Send(context.WithoutCancel(ctx), ev.UserID, types.Reply{Text: text}); sendErr != nil {
		L_warn("dispatch: failed to notify user", "user", ev.UserID, "cycle", cycleID, "error", sendErr)
	}
}

// safe runs cycle, turning a panic into an error.
func safe(ctx context.Context, cycle Cycle, s *session.Session, ev types.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return cycle(ctx, s, ev)
}
