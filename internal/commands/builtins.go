package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/types"
	"github.com/roelfdiedericks/parrot/internal/user"
)

// menuOrder is the display order of /help and the transport command menu.
var menuOrder = []string{
	"/start", "/clear", "/reset", "/system", "/lang", "/voice",
	"/answer", "/model", "/mode", "/help", "/users", "/allow_access", "/ban_access",
}

func order(name string) int {
	for i, n := range menuOrder {
		if n == name {
			return i
		}
	}
	return len(menuOrder)
}

// registerBuiltins registers all built-in commands
func registerBuiltins(m *Manager) {
	m.Register(&Command{Name: "/start", Description: "Start talking to the bot", Handler: handleStart})
	m.Register(&Command{Name: "/clear", Description: "Clear your conversation", Handler: handleClear})
	m.Register(&Command{Name: "/reset", Description: "Reset to the initial settings", Handler: handleReset})

	for _, f := range []struct {
		name, desc string
		flow       session.Flow
	}{
		{"/system", "Change the conversation style", session.FlowSystem},
		{"/lang", "Choose the language pair", session.FlowLang},
		{"/voice", "Choose the voices", session.FlowVoice},
		{"/answer", "Answer format: text, voice or both", session.FlowAnswer},
		{"/model", "Choose the AI model", session.FlowModel},
		{"/mode", "Choose the mode: AI, echo or translate", session.FlowMode},
	} {
		m.Register(&Command{Name: f.name, Description: f.desc, Handler: startFlow(f.flow)})
	}

	m.Register(&Command{Name: "/help", Description: "Show this help", Handler: handleHelp(m)})

	m.Register(&Command{Name: "/users", Description: "List registered users", Admin: true, Handler: handleUsers})
	m.Register(&Command{
		Name:        "/allow_access",
		Description: "Grant access to a user",
		Usage:       "<id>",
		Admin:       true,
		Handler:     handleAccess(true),
	})
	m.Register(&Command{
		Name:        "/ban_access",
		Description: "Revoke access from a user",
		Usage:       "<id>",
		Admin:       true,
		Handler:     handleAccess(false),
	})
}

// RegisterUser adds the sender of ev to the registry on first contact and
// tells the admins. Reports whether the user is new.
func RegisterUser(ctx context.Context, env *Env, ev types.Event) bool {
	first := ev.FirstName
	if first == "" {
		first = "<unknown>"
	}
	username := ev.Username
	if username == "" {
		username = "<no username>"
	}
	added, err := env.Users.Add(ev.UserID, first, username)
	if err != nil {
		L_error("commands: failed to register user", "user", ev.UserID, "error", err)
		return false
	}
	if !added {
		return false
	}

	msg := fmt.Sprintf("New user ID: %d, name: %s, username: %s", ev.UserID, first, username)
	L_info(msg)
	for _, admin := range env.Admins {
		if err := env.Notify.Send(ctx, admin, types.Reply{Text: msg}); err != nil {
			L_warn("commands: failed to notify admin", "admin", admin, "error", err)
		}
	}
	return true
}

func run(ctx context.Context, args *CommandArgs, fn func(ctx context.Context, s *session.Session) error) error {
	return args.Env.Runner.Run(ctx, args.Event, func(ctx context.Context, s *session.Session, _ types.Event) error {
		return fn(ctx, s)
	})
}

func handleStart(ctx context.Context, args *CommandArgs) *CommandResult {
	err := run(ctx, args, func(_ context.Context, s *session.Session) error {
		s.State = session.StateStart
		s.Flow = session.FlowNone
		return nil
	})
	if err != nil {
		return &CommandResult{Error: err}
	}
	return &CommandResult{
		Text:        "Hi! I can talk about anything, translate and speak. Type /help to see what I can do.",
		Suggestions: []string{},
	}
}

func handleClear(ctx context.Context, args *CommandArgs) *CommandResult {
	id := args.Event.UserID
	err := run(ctx, args, func(_ context.Context, s *session.Session) error {
		args.Env.Dialogue.Clear(id)
		s.State = session.StateDefault
		s.Flow = session.FlowNone
		s.Scratch.Text = ""
		s.Unstage()
		return nil
	})
	if err != nil {
		return &CommandResult{Error: err}
	}
	return &CommandResult{Text: "Your conversation is cleared.", Suggestions: []string{}}
}

func handleReset(ctx context.Context, args *CommandArgs) *CommandResult {
	id := args.Event.UserID
	err := run(ctx, args, func(_ context.Context, s *session.Session) error {
		args.Env.Dialogue.SetSystem(id, "")
		args.Env.Dialogue.Clear(id)
		*s = *session.New(id, args.Env.Defaults)
		s.State = session.StateDefault
		return nil
	})
	if err != nil {
		return &CommandResult{Error: err}
	}
	return &CommandResult{Text: "Settings and conversation are reset.", Suggestions: []string{}}
}

// startFlow enters a wizard flow; the flow sends its own prompt.
func startFlow(flow session.Flow) CommandHandler {
	return func(ctx context.Context, args *CommandArgs) *CommandResult {
		err := run(ctx, args, func(ctx context.Context, s *session.Session) error {
			return args.Env.Flows.Start(ctx, s, flow)
		})
		return &CommandResult{Error: err}
	}
}

func handleHelp(m *Manager) CommandHandler {
	return func(ctx context.Context, args *CommandArgs) *CommandResult {
		admin := args.Env.IsAdmin(args.Event.UserID)

		var text strings.Builder
		text.WriteString("Available commands:\n")
		for _, cmd := range m.List() {
			if cmd.Admin && !admin {
				continue
			}
			name := cmd.Name
			if cmd.Usage != "" {
				name += " " + cmd.Usage
			}
			text.WriteString(fmt.Sprintf("  %s - %s\n", name, cmd.Description))
		}
		return &CommandResult{Text: text.String()}
	}
}

func handleUsers(ctx context.Context, args *CommandArgs) *CommandResult {
	users := args.Env.Users.List()
	if len(users) == 0 {
		return &CommandResult{Text: "No registered users."}
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Users (%d):\n", len(users)))
	for _, u := range users {
		access := "allowed"
		if !u.Access {
			access = "banned"
		}
		text.WriteString(fmt.Sprintf("%d: %s (%s), %s, joined %s\n",
			u.ID, u.FirstName, u.Username, access, u.JoinedAt.Format(time.DateOnly)))
	}
	return &CommandResult{Text: text.String()}
}

func handleAccess(access bool) CommandHandler {
	return func(ctx context.Context, args *CommandArgs) *CommandResult {
		fields := strings.Fields(args.RawArgs)
		if len(fields) != 1 {
			return invalidFormat(args)
		}
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return invalidFormat(args)
		}

		if err := args.Env.Users.SetAccess(id, access); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return &CommandResult{Text: fmt.Sprintf("User %d is not registered.", id), Error: err}
			}
			return &CommandResult{Text: fmt.Sprintf("Failed to update user %d: %s", id, err), Error: err}
		}

		verb := "granted to"
		if !access {
			verb = "revoked from"
		}
		L_info("commands: access changed", "admin", args.Event.UserID, "user", id, "access", access)
		return &CommandResult{Text: fmt.Sprintf("Access %s user %d.", verb, id)}
	}
}

func invalidFormat(args *CommandArgs) *CommandResult {
	name := strings.SplitN(strings.TrimSpace(args.Event.Text), " ", 2)[0]
	return &CommandResult{
		Text:  fmt.Sprintf("Invalid command format. Usage: %s %s", name, args.Usage),
		Error: types.ErrInvalidInput,
	}
}
