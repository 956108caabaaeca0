package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/roelfdiedericks/parrot/internal/config"
	"github.com/roelfdiedericks/parrot/internal/paths"
)

// InitCmd writes a default config file.
type InitCmd struct {
	Path  string `arg:"" optional:"" help:"Where to write the config (default: ~/.parrot/parrot.yaml)" type:"path"`
	Token string `help:"Telegram bot token (prompted for when omitted)"`
	Force bool   `help:"Overwrite an existing file"`
}

func (c *InitCmd) Run() error {
	path := c.Path
	if path == "" {
		var err error
		if path, err = paths.DefaultConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	token := c.Token
	if token == "" {
		var err error
		if token, err = readToken(); err != nil {
			return err
		}
	}

	cfg := config.Defaults()
	cfg.Telegram.Token = token
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}

// readToken reads the bot token from stdin, without echo on a terminal.
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Telegram bot token: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
