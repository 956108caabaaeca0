// Package commands provides the bot's slash commands.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Command represents a slash command
type Command struct {
	Name        string // e.g., "/voice"
	Description string // e.g., "Choose the voices"
	Usage       string // argument usage, e.g. "<id>" (optional)
	Admin       bool   // restricted to the admin allow-list
	Aliases     []string
	Handler     CommandHandler
}

// CommandHandler is the function signature for command handlers
type CommandHandler func(ctx context.Context, args *CommandArgs) *CommandResult

// CommandArgs contains the arguments passed to a command handler
type CommandArgs struct {
	Event   types.Event // the triggering event; Text holds the raw command line
	Env     *Env
	RawArgs string // Everything after the command name
	Usage   string // Copy of Command.Usage for error messages
}

// Manager is the command registry
type Manager struct {
	mu       sync.RWMutex
	commands map[string]*Command // keyed by name (lowercase)
	env      *Env
}

// NewManager creates a manager with the built-in commands registered.
func NewManager(env *Env) *Manager {
	m := &Manager{
		commands: make(map[string]*Command),
		env:      env,
	}
	registerBuiltins(m)
	return m
}

// Register adds a command to the manager
func (m *Manager) Register(cmd *Command) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := strings.ToLower(cmd.Name)
	m.commands[name] = cmd

	for _, alias := range cmd.Aliases {
		m.commands[strings.ToLower(alias)] = cmd
	}
}

// Get returns a command by name (or alias)
func (m *Manager) Get(name string) *Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commands[strings.ToLower(name)]
}

// List returns all unique commands (no aliases), in registration order
// of their names.
func (m *Manager) List() []*Command {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[*Command]bool)
	var list []*Command
	for _, cmd := range m.commands {
		if !seen[cmd] {
			seen[cmd] = true
			list = append(list, cmd)
		}
	}

	sort.Slice(list, func(i, j int) bool {
		return order(list[i].Name) < order(list[j].Name)
	})

	return list
}

// Execute runs the command line in ev.Text. Unseen users are registered
// first; admin-only commands are refused for everyone else.
func (m *Manager) Execute(ctx context.Context, ev types.Event) *CommandResult {
	cmdStr := strings.TrimSpace(ev.Text)
	parts := strings.SplitN(cmdStr, " ", 2)
	name := strings.ToLower(parts[0])
	// "/cmd@botname" in group chats
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	rawArgs := ""
	if len(parts) > 1 {
		rawArgs = strings.TrimSpace(parts[1])
	}

	RegisterUser(ctx, m.env, ev)

	cmd := m.Get(name)
	if cmd == nil {
		return &CommandResult{
			Text: fmt.Sprintf("Unknown command: %s\nType /help for available commands.", name),
		}
	}
	if cmd.Admin && !m.env.IsAdmin(ev.UserID) {
		L_warn("commands: admin command refused", "user", ev.UserID, "command", cmd.Name)
		return &CommandResult{Text: "Sorry, only an administrator can use this command."}
	}

	L_debug("commands: executing", "user", ev.UserID, "command", cmd.Name)
	args := &CommandArgs{
		Event:   ev,
		Env:     m.env,
		RawArgs: rawArgs,
		Usage:   cmd.Usage,
	}
	return cmd.Handler(ctx, args)
}

// IsCommand checks if text is a command
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}
