// Package config provides configuration loading for parrot.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	cronlib "github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/paths"
)

// Config is the root of parrot.yaml / parrot.toml / parrot.json
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram" toml:"telegram" json:"telegram"`
	OpenAI     OpenAIConfig     `yaml:"openai" toml:"openai" json:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" toml:"anthropic" json:"anthropic"`
	Yandex     YandexConfig     `yaml:"yandex" toml:"yandex" json:"yandex"`
	Dialogue   DialogueConfig   `yaml:"dialogue" toml:"dialogue" json:"dialogue"`
	Speech     SpeechConfig     `yaml:"speech" toml:"speech" json:"speech"`
	Dispatcher DispatcherConfig `yaml:"dispatcher" toml:"dispatcher" json:"dispatcher"`
	Users      UsersConfig      `yaml:"users" toml:"users" json:"users"`
	Admins     []int64          `yaml:"admins" toml:"admins" json:"admins"`
	Status     StatusConfig     `yaml:"status" toml:"status" json:"status"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging" json:"logging"`
}

type TelegramConfig struct {
	Token          string `yaml:"token" toml:"token" json:"token"`
	PollTimeoutSec int    `yaml:"poll_timeout_sec" toml:"poll_timeout_sec" json:"poll_timeout_sec"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key" toml:"api_key" json:"api_key"`
	BaseURL   string `yaml:"base_url" toml:"base_url" json:"base_url"`
	ImageSize string `yaml:"image_size" toml:"image_size" json:"image_size"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key" toml:"api_key" json:"api_key"`
	BaseURL   string `yaml:"base_url" toml:"base_url" json:"base_url"`
	MaxTokens int    `yaml:"max_tokens" toml:"max_tokens" json:"max_tokens"`
}

// YandexConfig holds the Yandex Cloud credentials shared by SpeechKit and Translate.
type YandexConfig struct {
	APIKey   string `yaml:"api_key" toml:"api_key" json:"api_key"`
	FolderID string `yaml:"folder_id" toml:"folder_id" json:"folder_id"`
}

type DialogueConfig struct {
	Model            string `yaml:"model" toml:"model" json:"model"`
	SystemPrompt     string `yaml:"system_prompt" toml:"system_prompt" json:"system_prompt"`
	MaxHistoryTokens int    `yaml:"max_history_tokens" toml:"max_history_tokens" json:"max_history_tokens"`
}

type SpeechConfig struct {
	DefaultVoice    string `yaml:"default_voice" toml:"default_voice" json:"default_voice"`
	DefaultLanguage string `yaml:"default_language" toml:"default_language" json:"default_language"`
	TTSModel        string `yaml:"tts_model" toml:"tts_model" json:"tts_model"`
	STTModel        string `yaml:"stt_model" toml:"stt_model" json:"stt_model"`
}

type DispatcherConfig struct {
	TimeoutSec     int    `yaml:"timeout_sec" toml:"timeout_sec" json:"timeout_sec"`
	ChainMarker    string `yaml:"chain_marker" toml:"chain_marker" json:"chain_marker"`
	ChainThreshold int    `yaml:"chain_threshold" toml:"chain_threshold" json:"chain_threshold"`
	ErrorLimit     int    `yaml:"error_limit" toml:"error_limit" json:"error_limit"`
	MaxInFlight    int64  `yaml:"max_in_flight" toml:"max_in_flight" json:"max_in_flight"`
}

// Timeout returns the per-cycle deadline.
func (d DispatcherConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

type UsersConfig struct {
	Store            string `yaml:"store" toml:"store" json:"store"` // "json" or "sqlite"
	Path             string `yaml:"path" toml:"path" json:"path"`
	Watch            bool   `yaml:"watch" toml:"watch" json:"watch"`
	SnapshotSchedule string `yaml:"snapshot_schedule" toml:"snapshot_schedule" json:"snapshot_schedule"`
}

type StatusConfig struct {
	Listen string `yaml:"listen" toml:"listen" json:"listen"` // empty disables the status server
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	JSON  bool   `yaml:"json" toml:"json" json:"json"`
}

// Defaults returns the typed defaults merged under every loaded file.
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeoutSec: 10},
		OpenAI:   OpenAIConfig{ImageSize: "1024x1024"},
		Anthropic: AnthropicConfig{
			MaxTokens: 4096,
		},
		Dialogue: DialogueConfig{
			Model:            "gpt-3.5-turbo-1106",
			MaxHistoryTokens: 12000,
		},
		Speech: SpeechConfig{
			DefaultVoice:    "marina",
			DefaultLanguage: "ru-RU",
			TTSModel:        "tts-1",
			STTModel:        "whisper-1",
		},
		Dispatcher: DispatcherConfig{
			TimeoutSec:     180,
			ChainMarker:    "+\n",
			ChainThreshold: 3580,
			ErrorLimit:     512,
			MaxInFlight:    64,
		},
		Users: UsersConfig{
			Store:            "json",
			SnapshotSchedule: "@every 5m",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Environment variables that override secrets from the file.
const (
	EnvTelegramToken = "PARROT_TELEGRAM_TOKEN"
	EnvOpenAIKey     = "PARROT_OPENAI_KEY"
	EnvAnthropicKey  = "PARROT_ANTHROPIC_KEY"
	EnvYandexKey     = "PARROT_YANDEX_KEY"
)

// Load reads the config file at path (or the first one found by
// paths.ConfigPath when path is empty), applies environment overrides
// and fills unset fields from Defaults. Returns the resolved file path,
// which is empty when no file was found.
func Load(path string) (*Config, string, error) {
	if path == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
		if err := Decode(path, data, cfg); err != nil {
			return nil, "", err
		}
		L_debug("config: loaded", "path", path, "size", len(data))
	} else {
		L_warn("config: no config file found, using defaults and environment")
	}

	cfg.applyEnv()

	if err := mergo.Merge(cfg, Defaults()); err != nil {
		return nil, "", fmt.Errorf("failed to apply defaults: %w", err)
	}

	return cfg, path, nil
}

// Decode parses data according to the file extension of path.
func Decode(path string, data []byte, cfg *Config) error {
	var err error
	switch format(path) {
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "toml":
		_, err = toml.Decode(string(data), cfg)
	case "json":
		err = json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Encode serializes cfg according to the file extension of path.
func Encode(path string, cfg *Config) ([]byte, error) {
	switch format(path) {
	case "yaml":
		return yaml.Marshal(cfg)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Save writes cfg to path atomically in the format implied by its extension.
func Save(path string, cfg *Config) error {
	data, err := Encode(path, cfg)
	if err != nil {
		return err
	}
	return AtomicWrite(path, data, 0600)
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	}
	return ""
}

func (c *Config) applyEnv() {
	override := func(dst *string, env string) {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
	override(&c.Telegram.Token, EnvTelegramToken)
	override(&c.OpenAI.APIKey, EnvOpenAIKey)
	override(&c.Anthropic.APIKey, EnvAnthropicKey)
	override(&c.Yandex.APIKey, EnvYandexKey)
}

// Validate checks the fields the bot cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured (set telegram.token or %s)", EnvTelegramToken)
	}
	if c.Dispatcher.TimeoutSec <= 0 {
		return fmt.Errorf("dispatcher.timeout_sec must be positive, got %d", c.Dispatcher.TimeoutSec)
	}
	if c.Dispatcher.ChainThreshold <= 0 {
		return fmt.Errorf("dispatcher.chain_threshold must be positive, got %d", c.Dispatcher.ChainThreshold)
	}
	switch c.Users.Store {
	case "json", "sqlite":
	default:
		return fmt.Errorf("users.store must be 'json' or 'sqlite', got %q", c.Users.Store)
	}
	if c.Users.SnapshotSchedule != "" {
		if _, err := cronlib.ParseStandard(c.Users.SnapshotSchedule); err != nil {
			return fmt.Errorf("invalid users.snapshot_schedule %q: %w", c.Users.SnapshotSchedule, err)
		}
	}
	return nil
}

// IsAdmin reports whether id is in the admin allow-list.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.Admins {
		if a == id {
			return true
		}
	}
	return false
}
