package commands

import (
	"context"

	"github.com/roelfdiedericks/parrot/internal/dispatch"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/types"
	"github.com/roelfdiedericks/parrot/internal/user"
)

// Runner executes session-mutating work under the dispatcher's guard.
type Runner interface {
	Run(ctx context.Context, ev types.Event, fn dispatch.Cycle) error
}

// Flows starts a wizard flow on a session.
type Flows interface {
	Start(ctx context.Context, s *session.Session, flow session.Flow) error
}

// Dialogue is the part of the dialogue capability commands touch.
type Dialogue interface {
	SetSystem(userID int64, text string)
	Clear(userID int64)
}

// Registry is the user registry as commands see it.
type Registry interface {
	Add(id int64, firstName, username string) (bool, error)
	List() []user.User
	SetAccess(id int64, access bool) error
}

// Env holds everything command handlers need.
type Env struct {
	Runner   Runner
	Flows    Flows
	Dialogue Dialogue
	Users    Registry
	Defaults session.Defaults
	Admins   []int64
	Notify   types.Responder // admin notifications
}

// IsAdmin reports whether id is in the admin allow-list.
func (e *Env) IsAdmin(id int64) bool {
	for _, a := range e.Admins {
		if a == id {
			return true
		}
	}
	return false
}

// CommandResult contains the result of a command execution
type CommandResult struct {
	Text        string   // Plain text output
	Markdown    string   // Markdown formatted output
	Suggestions []string // keyboard hint, see types.Reply
	Error       error    // Error if command failed
}

// Reply converts the result to an outbound message. Results carrying no
// text (the command already answered) yield ok=false.
func (r *CommandResult) Reply() (types.Reply, bool) {
	if r == nil {
		return types.Reply{}, false
	}
	if r.Markdown != "" {
		return types.Reply{Text: r.Markdown, Markdown: true, Suggestions: r.Suggestions}, true
	}
	if r.Text != "" {
		return types.Reply{Text: r.Text, Suggestions: r.Suggestions}, true
	}
	return types.Reply{}, false
}
