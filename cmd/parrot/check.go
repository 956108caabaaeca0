package main

import (
	"context"
	"fmt"
	"time"
)

// CheckCmd sends one prompt to the dialogue backend and prints the answer.
type CheckCmd struct {
	Model   string        `help:"Model to query (default: dialogue.model)"`
	Prompt  string        `help:"Prompt to send" default:"Hello! Reply with one short sentence."`
	Timeout time.Duration `help:"Request timeout" default:"60s"`
}

func (c *CheckCmd) Run(cli *CLI) error {
	cfg, _, err := loadConfig(cli)
	if err != nil {
		return err
	}
	engine, err := newDialogue(cfg)
	if err != nil {
		return err
	}

	model := c.Model
	if model == "" {
		model = cfg.Dialogue.Model
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	start := time.Now()
	gen, err := engine.Generate(ctx, 0, model, c.Prompt)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	fmt.Printf("%s (%s, %s)\n", gen.Text, model, time.Since(start).Round(time.Millisecond))
	return nil
}
