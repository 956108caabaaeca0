// Package wizard implements the per-user configuration state machine.
//
// Every declared state maps to a Step. A state without a step is served
// by the fallback handler; with no fallback either, construction fails.
// Handlers run on a session copy owned by the caller; the machine only
// writes the state field after a handler reports Advance.
package wizard

import (
	"context"
	"errors"
	"fmt"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/metrics"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Outcome is a handler's verdict on the current state.
type Outcome int

const (
	// Advance moves to the next step of the flow, or to the default state.
	Advance Outcome = iota
	// Stay keeps the current state.
	Stay
)

// Handler processes input for one state. Returning an error wrapping
// types.ErrInvalidInput re-prompts and stays.
type Handler func(ctx context.Context, s *session.Session, input string) (Outcome, error)

// Step is one wizard state: its entry prompt and its input handler.
type Step struct {
	Prompt func(s *session.Session) types.Reply
	Handle Handler
}

// Machine is the validated dispatch table.
type Machine struct {
	steps    map[session.State]Step
	fallback Handler
	flows    map[session.Flow][]session.State
	out      types.Responder
}

// NewMachine validates the table against session.States. Every state
// needs a step unless a fallback is given, and every flow step must
// have a prompt.
func NewMachine(out types.Responder, steps map[session.State]Step, fallback Handler, flows map[session.Flow][]session.State) (*Machine, error) {
	for state := range steps {
		if !state.Valid() {
			return nil, fmt.Errorf("wizard: step for undeclared state %q: %w", state, types.ErrUnknownState)
		}
	}
	if fallback == nil {
		for _, state := range session.States {
			if st, ok := steps[state]; !ok || st.Handle == nil {
				return nil, fmt.Errorf("wizard: %w", &types.NotFoundHandlerError{State: string(state)})
			}
		}
	}
	for flow, chain := range flows {
		if len(chain) == 0 {
			return nil, fmt.Errorf("wizard: flow %q has no steps", flow)
		}
		for _, state := range chain {
			st, ok := steps[state]
			if !ok || st.Prompt == nil || st.Handle == nil {
				return nil, fmt.Errorf("wizard: flow %q step %q needs a prompt and a handler", flow, state)
			}
		}
	}
	return &Machine{steps: steps, fallback: fallback, flows: flows, out: out}, nil
}

// Lookup returns the handler serving state.
func (m *Machine) Lookup(state session.State) (Handler, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("state %q: %w", state, types.ErrUnknownState)
	}
	if st, ok := m.steps[state]; ok && st.Handle != nil {
		return st.Handle, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, &types.NotFoundHandlerError{State: string(state)}
}

// Start enters the first step of flow and sends its prompt.
func (m *Machine) Start(ctx context.Context, s *session.Session, flow session.Flow) error {
	chain, ok := m.flows[flow]
	if !ok {
		return fmt.Errorf("wizard: unknown flow %q", flow)
	}
	s.Unstage()
	s.Flow = flow
	s.State = chain[0]
	L_debug("wizard: flow started", "user", s.UserID, "flow", flow, "state", s.State)
	return m.prompt(ctx, s)
}

// Handle runs the handler for s.State on input and applies the transition.
func (m *Machine) Handle(ctx context.Context, s *session.Session, input string) error {
	state := s.State
	h, err := m.Lookup(state)
	if err != nil {
		return err
	}

	outcome, err := h(ctx, s, input)
	if errors.Is(err, types.ErrInvalidInput) {
		metrics.WizardSteps.WithLabelValues(string(state), "stay").Inc()
		L_debug("wizard: invalid input, re-prompting", "user", s.UserID, "state", state)
		return m.reprompt(ctx, s)
	}
	if err != nil {
		return err
	}
	if outcome == Stay {
		metrics.WizardSteps.WithLabelValues(string(state), "stay").Inc()
		return nil
	}

	metrics.WizardSteps.WithLabelValues(string(state), "advance").Inc()
	next := m.Next(s.Flow, state)
	s.State = next
	if next == session.StateDefault {
		s.Flow = session.FlowNone
		return nil
	}
	L_trace("wizard: advanced", "user", s.UserID, "from", state, "to", next)
	return m.prompt(ctx, s)
}

// Next is the state after state in flow, or the default state.
func (m *Machine) Next(flow session.Flow, state session.State) session.State {
	chain := m.flows[flow]
	for i, st := range chain {
		if st == state && i+1 < len(chain) {
			return chain[i+1]
		}
	}
	return session.StateDefault
}

func (m *Machine) prompt(ctx context.Context, s *session.Session) error {
	st, ok := m.steps[s.State]
	if !ok || st.Prompt == nil {
		return nil
	}
	return m.out.Send(ctx, s.UserID, st.Prompt(s))
}

func (m *Machine) reprompt(ctx context.Context, s *session.Session) error {
	reply := types.Reply{Text: types.UserMessage(types.ErrInvalidInput)}
	if st, ok := m.steps[s.State]; ok && st.Prompt != nil {
		p := st.Prompt(s)
		reply.Suggestions = p.Suggestions
		reply.Text += "\n\n" + p.Text
	}
	return m.out.Send(ctx, s.UserID, reply)
}
