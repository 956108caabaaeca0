package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/parrot/internal/config"
	. "github.com/roelfdiedericks/parrot/internal/logging"
)

func TestLevelFlagsOverrideConfig(t *testing.T) {
	assert.Equal(t, LevelWarn, (&CLI{}).level("warn"))
	assert.Equal(t, LevelDebug, (&CLI{Debug: true}).level("warn"))
	assert.Equal(t, LevelTrace, (&CLI{Debug: true, Trace: true}).level("warn"))
}

func TestOpenUsersNextToConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()

	reg, jsonStore, err := openUsers(cfg, filepath.Join(dir, "parrot.yaml"))
	require.NoError(t, err)
	defer reg.Close()
	require.NotNil(t, jsonStore)

	_, err = reg.Add(1, "Ann", "ann")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "users.json"))
	assert.NoError(t, err)
}

func TestOpenUsersSQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.Users.Store = "sqlite"
	cfg.Users.Path = filepath.Join(t.TempDir(), "data", "users.db")

	reg, jsonStore, err := openUsers(cfg, "")
	require.NoError(t, err)
	defer reg.Close()
	assert.Nil(t, jsonStore)

	_, err = reg.Add(1, "Ann", "ann")
	require.NoError(t, err)
	assert.True(t, reg.Has(1))
}

func TestNewDialogueNeedsBackend(t *testing.T) {
	_, err := newDialogue(config.Defaults())
	assert.Error(t, err)

	cfg := config.Defaults()
	cfg.Anthropic.APIKey = "test"
	_, err = newDialogue(cfg)
	assert.NoError(t, err)
}

func TestNewSpeechWithoutYandex(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAI.APIKey = "test"
	engine, translator, err := newSpeech(cfg)
	require.NoError(t, err)
	assert.NotNil(t, engine)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_, err = translator.Detect(ctx, "hello", nil)
	assert.ErrorIs(t, err, errNoTranslator)
}
