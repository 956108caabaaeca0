package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

var version = "0.3.0"

// CLI is the command line of the parrot binary.
type CLI struct {
	Config string `help:"Config file (default: ./parrot.yaml, then ~/.parrot/parrot.yaml)" short:"c" type:"path"`
	Debug  bool   `help:"Enable debug logging" short:"d"`
	Trace  bool   `help:"Enable trace logging" short:"t"`

	Run     RunCmd     `cmd:"" default:"1" help:"Run the bot"`
	Check   CheckCmd   `cmd:"" help:"Send one test completion to the dialogue backend"`
	Init    InitCmd    `cmd:"" help:"Write a default config file"`
	Version VersionCmd `cmd:"" help:"Show version"`
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("parrot %s\n", version)
	return nil
}

// level picks the log level from the flags, falling back to the config value.
func (c *CLI) level(configured string) int {
	switch {
	case c.Trace:
		return LevelTrace
	case c.Debug:
		return LevelDebug
	}
	return ParseLevel(configured)
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("parrot"),
		kong.Description("Telegram voice and text assistant"),
		kong.UsageOnError(),
	)

	Init(&Options{Level: cli.level("info"), TimeFormat: "15:04:05", ShowCaller: true})

	ctx.FatalIfErrorf(ctx.Run(cli))
}
