// Package yandex is a small REST client for Yandex Cloud SpeechKit (v1)
// and Translate (v2). Both services share API-key auth and a folder id.
package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/types"
)

const (
	DefaultTTSURL       = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"
	DefaultSTTURL       = "https://stt.api.cloud.yandex.net/speech/v1/stt:recognize"
	DefaultTranslateURL = "https://translate.api.cloud.yandex.net/translate/v2"
)

// Config holds credentials and endpoint overrides.
type Config struct {
	APIKey   string
	FolderID string

	TTSURL       string
	STTURL       string
	TranslateURL string
	Timeout      time.Duration
}

// Client calls SpeechKit and Translate.
type Client struct {
	config Config
	http   *http.Client
}

// New creates a client. Empty endpoints fall back to the public ones.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("yandex API key not configured")
	}
	if cfg.TTSURL == "" {
		cfg.TTSURL = DefaultTTSURL
	}
	if cfg.STTURL == "" {
		cfg.STTURL = DefaultSTTURL
	}
	if cfg.TranslateURL == "" {
		cfg.TranslateURL = DefaultTranslateURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	L_info("yandex: client initialized", "folder", cfg.FolderID)
	return &Client{config: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Synthesize returns ogg/opus audio for text spoken by voice in lang.
// An empty lang lets the service pick the voice's native language.
func (c *Client) Synthesize(ctx context.Context, text, voice, lang string) ([]byte, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", voice)
	form.Set("format", "oggopus")
	if lang != "" {
		form.Set("lang", lang)
	}
	if c.config.FolderID != "" {
		form.Set("folderId", c.config.FolderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TTSURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, "speechkit-tts")
	if err != nil {
		return nil, err
	}
	L_debug("yandex: synthesized", "voice", voice, "lang", lang, "bytes", len(body))
	return body, nil
}

// Recognize transcribes an ogg/opus voice note. An empty lang uses the
// service default.
func (c *Client) Recognize(ctx context.Context, audio []byte, lang string) (string, error) {
	q := url.Values{}
	q.Set("topic", "general")
	if lang != "" {
		q.Set("lang", lang)
	}
	if c.config.FolderID != "" {
		q.Set("folderId", c.config.FolderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.STTURL+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/ogg")

	body, err := c.do(req, "speechkit-stt")
	if err != nil {
		return "", err
	}

	var resp struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode recognition response: %w", err)
	}
	L_debug("yandex: recognized", "lang", lang, "length", len(resp.Result))
	return resp.Result, nil
}

// Detect returns the language code of text, or "" when the service has no answer.
func (c *Client) Detect(ctx context.Context, text string, hints []string) (string, error) {
	payload := map[string]any{"text": text}
	if len(hints) > 0 {
		payload["languageCodeHints"] = hints
	}
	if c.config.FolderID != "" {
		payload["folderId"] = c.config.FolderID
	}

	var resp struct {
		LanguageCode string `json:"languageCode"`
	}
	if err := c.postJSON(ctx, "/detect", payload, &resp); err != nil {
		return "", err
	}
	return resp.LanguageCode, nil
}

// Translate translates text into target. An empty source lets the service detect it.
func (c *Client) Translate(ctx context.Context, text, target, source string) (string, error) {
	payload := map[string]any{
		"targetLanguageCode": target,
		"texts":              []string{text},
	}
	if source != "" {
		payload["sourceLanguageCode"] = source
	}
	if c.config.FolderID != "" {
		payload["folderId"] = c.config.FolderID
	}

	var resp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := c.postJSON(ctx, "/translate", payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Translations) == 0 {
		return "", nil
	}
	return resp.Translations[0].Text, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TranslateURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "translate")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, service string) ([]byte, error) {
	req.Header.Set("Authorization", "Api-Key "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read response: %w", service, err)
	}

	if resp.StatusCode != http.StatusOK {
		L_error("yandex: request failed", "service", service, "status", resp.StatusCode, "body", string(body))
		return nil, &types.APIError{Service: service, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts the message from either SpeechKit
// ({"error_message"}) or Translate ({"message"}) error bodies.
func errorMessage(body []byte) string {
	var e struct {
		ErrorMessage string `json:"error_message"`
		Message      string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	return e.Message
}
