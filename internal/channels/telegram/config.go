package telegram

import (
	"fmt"
	"time"
)

// Config holds the Telegram bot connection settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Validate checks the config before the bot connects.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	return nil
}
