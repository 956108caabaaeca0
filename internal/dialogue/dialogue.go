// Package dialogue owns per-user conversation history and produces text or
// images through the configured generation backends.
package dialogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/tokens"
)

// Role tags a history message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one history entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatProvider completes a conversation. history[0] is the system message.
type ChatProvider interface {
	Complete(ctx context.Context, model string, history []Message) (string, error)
	Name() string
}

// Image is a generated picture plus the prompt the backend actually used.
type Image struct {
	Data          []byte
	RevisedPrompt string
}

// ImageProvider generates images from a prompt.
type ImageProvider interface {
	Imagine(ctx context.Context, model, prompt string) (Image, error)
}

// Generation is the result of one Generate call.
type Generation struct {
	Text  string
	Image []byte
}

// DefaultSystem is the system message used when none is configured.
const DefaultSystem = "You are a helpful assistant."

// Config configures an Engine.
type Config struct {
	DefaultSystem    string
	MaxHistoryTokens int            // 0 disables trimming
	Counter          tokens.Counter // defaults to tokens.Get()
}

// Engine is the dialogue capability.
type Engine struct {
	defaultSystem string
	budget        int
	counter       tokens.Counter

	chat   map[string]ChatProvider
	images ImageProvider

	mu        sync.Mutex
	histories map[int64]*history
}

type history struct {
	mu       sync.Mutex
	system   string
	messages []Message // messages[0] is always the system message
}

// New creates an engine. Providers are attached with AddChat and SetImages.
func New(cfg Config) *Engine {
	if cfg.DefaultSystem == "" {
		cfg.DefaultSystem = DefaultSystem
	}
	if cfg.Counter == nil {
		cfg.Counter = tokens.Get()
	}
	return &Engine{
		defaultSystem: cfg.DefaultSystem,
		budget:        cfg.MaxHistoryTokens,
		counter:       cfg.Counter,
		chat:          make(map[string]ChatProvider),
		histories:     make(map[int64]*history),
	}
}

// AddChat registers a chat provider under its name.
func (e *Engine) AddChat(p ChatProvider) {
	e.chat[p.Name()] = p
}

// SetImages registers the image provider.
func (e *Engine) SetImages(p ImageProvider) {
	e.images = p
}

func (e *Engine) get(id int64) *history {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.histories[id]
	if !ok {
		h = &history{system: e.defaultSystem}
		h.messages = []Message{{Role: RoleSystem, Content: h.system}}
		e.histories[id] = h
	}
	return h
}

// SetSystem records the user's system message. Empty text restores the
// default. History is untouched until Clear or ReinsertSystem.
func (e *Engine) SetSystem(id int64, text string) {
	if text == "" {
		text = e.defaultSystem
	}
	h := e.get(id)
	h.mu.Lock()
	h.system = text
	h.mu.Unlock()
}

// GetSystem returns the user's system message.
func (e *Engine) GetSystem(id int64) string {
	h := e.get(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.system
}

// Clear resets history to exactly the current system message.
func (e *Engine) Clear(id int64) {
	h := e.get(id)
	h.mu.Lock()
	h.messages = []Message{{Role: RoleSystem, Content: h.system}}
	h.mu.Unlock()
	L_debug("dialogue: history cleared", "user", id)
}

// ReinsertSystem replaces the history head with the current system
// message and keeps the rest of the conversation.
func (e *Engine) ReinsertSystem(id int64) {
	h := e.get(id)
	h.mu.Lock()
	h.messages[0] = Message{Role: RoleSystem, Content: h.system}
	h.mu.Unlock()
}

// History returns a copy of the user's history.
func (e *Engine) History(id int64) []Message {
	h := e.get(id)
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}

// Systems returns every user's system message that differs from the default.
func (e *Engine) Systems() map[int64]string {
	e.mu.Lock()
	hs := make(map[int64]*history, len(e.histories))
	for id, h := range e.histories {
		hs[id] = h
	}
	e.mu.Unlock()

	out := make(map[int64]string)
	for id, h := range hs {
		h.mu.Lock()
		if h.system != e.defaultSystem {
			out[id] = h.system
		}
		h.mu.Unlock()
	}
	return out
}

// Generate answers text with model. Image models return the revised
// prompt and the picture. The exchange is appended to history unless
// the backend produced nothing.
func (e *Engine) Generate(ctx context.Context, id int64, model, text string) (Generation, error) {
	m := LookupModel(model)
	start := time.Now()

	var gen Generation
	if m.Kind == KindImage {
		if e.images == nil {
			return Generation{}, fmt.Errorf("dialogue: no image provider for model %q", m.ID)
		}
		img, err := e.images.Imagine(ctx, m.ID, text)
		if err != nil {
			return Generation{}, fmt.Errorf("dialogue: image: %w", err)
		}
		gen = Generation{Text: img.RevisedPrompt, Image: img.Data}
	} else {
		provider, ok := e.chat[m.Provider]
		if !ok {
			return Generation{}, fmt.Errorf("dialogue: provider %q not configured for model %q", m.Provider, m.ID)
		}
		request := append(e.History(id), Message{Role: RoleUser, Content: text})
		reply, err := provider.Complete(ctx, m.ID, request)
		if err != nil {
			return Generation{}, fmt.Errorf("dialogue: %s: %w", provider.Name(), err)
		}
		gen = Generation{Text: reply}
	}

	L_elapsed(start, "dialogue: generated", "user", id, "model", m.ID, "length", len(gen.Text), "image", gen.Image != nil)

	// An abandoned cycle must not leave its exchange in the history.
	if err := ctx.Err(); err != nil {
		return Generation{}, fmt.Errorf("dialogue: %w", err)
	}
	if gen.Text != "" || gen.Image != nil {
		e.appendExchange(id, text, gen.Text)
	}
	return gen, nil
}

func (e *Engine) appendExchange(id int64, user, assistant string) {
	h := e.get(id)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages,
		Message{Role: RoleUser, Content: user},
		Message{Role: RoleAssistant, Content: assistant},
	)

	rest := h.messages[1:]
	texts := make([]string, len(rest))
	for i, m := range rest {
		texts[i] = m.Content
	}
	reserved := e.counter.Count(h.messages[0].Content) + tokens.MessageOverhead
	if drop := tokens.Overflow(e.counter, e.budget, reserved, texts); drop > 0 {
		h.messages = append(h.messages[:1], rest[drop:]...)
		L_debug("dialogue: history trimmed", "user", id, "dropped", drop, "kept", len(h.messages))
	}
}
