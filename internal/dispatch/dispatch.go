// Package dispatch runs inbound events through the normalizer and the
// wizard state machine under the execution guard.
package dispatch

import (
	"context"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/metrics"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Machine is the state machine contract.
type Machine interface {
	Handle(ctx context.Context, s *session.Session, input string) error
}

// Dispatcher wires the guard, normalizer and state machine.
type Dispatcher struct {
	guard   *Guard
	norm    *Normalizer
	machine Machine
}

// New creates a dispatcher.
func New(guard *Guard, norm *Normalizer, machine Machine) *Dispatcher {
	return &Dispatcher{guard: guard, norm: norm, machine: machine}
}

// Dispatch processes one inbound event.
func (d *Dispatcher) Dispatch(ctx context.Context, ev types.Event) error {
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	return d.guard.Run(ctx, ev, d.cycle)
}

// Run executes fn under the guard, for commands that mutate the session.
func (d *Dispatcher) Run(ctx context.Context, ev types.Event, fn Cycle) error {
	return d.guard.Run(ctx, ev, fn)
}

func (d *Dispatcher) cycle(ctx context.Context, s *session.Session, ev types.Event) error {
	buffered := s.Scratch.Text != ""
	text, status, err := d.norm.Normalize(ctx, s, ev)
	if err != nil {
		return err
	}
	switch status {
	case Chained:
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeChained).Inc()
		return nil
	case Dropped:
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return nil
	}
	// The flushed chain belongs to this message now. Drop it from the live
	// session too, so a failed cycle does not replay it in front of the next one.
	if buffered && s.Scratch.Text == "" && ctx.Err() == nil {
		d.guard.sessions.Update(s.UserID, func(live *session.Session) { live.Scratch.Text = "" })
	}
	L_debug("dispatch: handling", "user", s.UserID, "state", s.State, "kind", ev.Kind, "chars", len(text))
	return d.machine.Handle(ctx, s, text)
}
