package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/roelfdiedericks/parrot/internal/config"
	"github.com/roelfdiedericks/parrot/internal/dialogue"
	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/paths"
	"github.com/roelfdiedericks/parrot/internal/speech"
	"github.com/roelfdiedericks/parrot/internal/tokens"
	"github.com/roelfdiedericks/parrot/internal/translate"
	"github.com/roelfdiedericks/parrot/internal/user"
	"github.com/roelfdiedericks/parrot/internal/yandex"
)

// loadConfig loads and validates the config, then re-initializes logging
// from it.
func loadConfig(cli *CLI) (*config.Config, string, error) {
	cfg, path, err := config.Load(cli.Config)
	if err != nil {
		return nil, "", err
	}
	Init(&Options{
		Level:      cli.level(cfg.Logging.Level),
		TimeFormat: "15:04:05",
		ShowCaller: true,
		JSON:       cfg.Logging.JSON,
	})
	return cfg, path, nil
}

// newDialogue builds the dialogue engine with every configured backend.
func newDialogue(cfg *config.Config) (*dialogue.Engine, error) {
	engine := dialogue.New(dialogue.Config{
		DefaultSystem:    cfg.Dialogue.SystemPrompt,
		MaxHistoryTokens: cfg.Dialogue.MaxHistoryTokens,
		Counter:          tokens.Get(),
	})

	configured := 0
	if cfg.OpenAI.APIKey != "" {
		p, err := dialogue.NewOpenAIProvider(dialogue.OpenAIConfig{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			ImageSize: cfg.OpenAI.ImageSize,
		})
		if err != nil {
			return nil, err
		}
		engine.AddChat(p)
		engine.SetImages(p)
		configured++
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := dialogue.NewAnthropicProvider(dialogue.AnthropicConfig{
			APIKey:    cfg.Anthropic.APIKey,
			BaseURL:   cfg.Anthropic.BaseURL,
			MaxTokens: cfg.Anthropic.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		engine.AddChat(p)
		configured++
	}
	if configured == 0 {
		return nil, fmt.Errorf("no dialogue backend configured (set %s or %s)", config.EnvOpenAIKey, config.EnvAnthropicKey)
	}
	return engine, nil
}

// newSpeech builds the speech engine and, when Yandex is configured, the
// translator that shares its client.
func newSpeech(cfg *config.Config) (*speech.Engine, translate.Translator, error) {
	var yandexVoices, openaiVoices speech.Provider
	var translator translate.Translator

	if cfg.Yandex.APIKey != "" {
		client, err := yandex.New(yandex.Config{APIKey: cfg.Yandex.APIKey, FolderID: cfg.Yandex.FolderID})
		if err != nil {
			return nil, nil, err
		}
		yandexVoices = speech.NewYandexProvider(client)
		translator = client
	} else {
		L_warn("yandex not configured: Yandex voices and translate mode are unavailable")
		translator = unavailableTranslator{}
	}

	if cfg.OpenAI.APIKey != "" {
		p, err := speech.NewOpenAIProvider(speech.OpenAIConfig{
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			TTSModel: cfg.Speech.TTSModel,
			STTModel: cfg.Speech.STTModel,
		})
		if err != nil {
			return nil, nil, err
		}
		openaiVoices = p
	}

	engine, err := speech.NewEngine(cfg.Speech.DefaultLanguage, yandexVoices, openaiVoices)
	if err != nil {
		return nil, nil, err
	}
	return engine, translator, nil
}

// unavailableTranslator fails every call; it stands in when Yandex is
// not configured.
type unavailableTranslator struct{}

var errNoTranslator = errors.New("translation requires yandex credentials")

func (unavailableTranslator) Detect(context.Context, string, []string) (string, error) {
	return "", errNoTranslator
}

func (unavailableTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", errNoTranslator
}

// openUsers opens the configured user store. The JSON store is returned
// separately so the caller can watch it.
func openUsers(cfg *config.Config, configPath string) (*user.Registry, *user.JSONStore, error) {
	path := cfg.Users.Path
	if path == "" {
		name := "users.json"
		if cfg.Users.Store == "sqlite" {
			name = "users.db"
		}
		var err error
		if path, err = paths.UsersPath(configPath, name); err != nil {
			return nil, nil, err
		}
	}
	path, err := paths.ExpandTilde(path)
	if err != nil {
		return nil, nil, err
	}
	if err := paths.EnsureParentDir(path); err != nil {
		return nil, nil, err
	}
	path = filepath.Clean(path)

	var store user.Store
	var jsonStore *user.JSONStore
	switch cfg.Users.Store {
	case "sqlite":
		s, err := user.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		jsonStore = user.NewJSONStore(path)
		store = jsonStore
	}

	reg, err := user.NewRegistry(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	L_info("users: store opened", "kind", cfg.Users.Store, "path", path)
	return reg, jsonStore, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
