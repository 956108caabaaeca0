package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// Backend-facing contracts.
type (
	Synthesizer interface {
		Synthesize(ctx context.Context, p Profile, text string) ([]byte, error)
	}
	Recognizer interface {
		Recognize(ctx context.Context, p Profile, audio []byte) (string, error)
	}
	Provider interface {
		Synthesizer
		Recognizer
		Name() string
	}
)

// MaxSyncDuration is the SpeechKit synchronous recognition limit.
const MaxSyncDuration = 30 * time.Second

// Engine routes synthesis by voice backend and recognition by audio length.
type Engine struct {
	providers       map[Backend]Provider
	defaultLanguage string
}

// NewEngine builds an engine over the configured providers. nil providers are skipped.
func NewEngine(defaultLanguage string, yandex, openai Provider) (*Engine, error) {
	e := &Engine{providers: make(map[Backend]Provider), defaultLanguage: defaultLanguage}
	if yandex != nil {
		e.providers[BackendYandex] = yandex
	}
	if openai != nil {
		e.providers[BackendOpenAI] = openai
	}
	if len(e.providers) == 0 {
		return nil, fmt.Errorf("speech: no providers configured")
	}
	if !ValidLanguage(defaultLanguage) || defaultLanguage == Auto {
		return nil, fmt.Errorf("speech: invalid default language %q", defaultLanguage)
	}
	return e, nil
}

// Synthesize speaks text with p. An auto language is replaced by the default language.
func (e *Engine) Synthesize(ctx context.Context, p Profile, text string) ([]byte, error) {
	if p.Language == Auto {
		p.Language = e.defaultLanguage
	}
	provider, ok := e.providers[p.Backend()]
	if !ok {
		return nil, fmt.Errorf("speech: voice %q needs the %s backend, which is not configured", p.Voice, p.Backend())
	}
	defer L_elapsed(time.Now(), "speech: synthesize", "provider", provider.Name(), "voice", p.Voice)
	return provider.Synthesize(ctx, p, text)
}

// Recognize transcribes audio with p's language and returns trimmed text.
// Notes longer than MaxSyncDuration go to OpenAI when it is configured.
func (e *Engine) Recognize(ctx context.Context, p Profile, audio []byte) (string, error) {
	provider := e.recognizer(audio)
	start := time.Now()
	text, err := provider.Recognize(ctx, p, audio)
	if err != nil {
		return "", fmt.Errorf("speech: %s recognize: %w", provider.Name(), err)
	}
	L_elapsed(start, "speech: recognize", "provider", provider.Name(), "lang", p.Language)
	return strings.TrimSpace(text), nil
}

func (e *Engine) recognizer(audio []byte) Provider {
	yandex, hasYandex := e.providers[BackendYandex]
	openai, hasOpenAI := e.providers[BackendOpenAI]
	if !hasYandex {
		return openai
	}
	if !hasOpenAI {
		return yandex
	}
	d, err := Duration(audio)
	if err != nil {
		L_debug("speech: cannot read voice duration", "error", err)
		return yandex
	}
	if d > MaxSyncDuration {
		L_debug("speech: long voice note, using openai", "duration", d)
		return openai
	}
	return yandex
}
