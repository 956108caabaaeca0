package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// OpenAIConfig configures OpenAI TTS and Whisper.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	TTSModel string // default "tts-1"
	STTModel string // default "whisper-1"
}

// OpenAIProvider serves OpenAI voices and long-form transcription.
type OpenAIProvider struct {
	client   *openai.Client
	ttsModel string
	sttModel string
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = string(openai.TTSModel1)
	}
	if cfg.STTModel == "" {
		cfg.STTModel = openai.Whisper1
	}

	L_info("speech: openai provider initialized", "tts", cfg.TTSModel, "stt", cfg.STTModel)

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(config),
		ttsModel: cfg.TTSModel,
		sttModel: cfg.STTModel,
	}, nil
}

func (o *OpenAIProvider) Synthesize(ctx context.Context, p Profile, text string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(p.Voice),
		ResponseFormat: openai.SpeechResponseFormatOpus,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}

// Recognize sends the ogg/opus note to Whisper. Whisper accepts OGG directly.
func (o *OpenAIProvider) Recognize(ctx context.Context, p Profile, audio []byte) (string, error) {
	req := openai.AudioRequest{
		Model:    o.sttModel,
		Reader:   bytes.NewReader(audio),
		FilePath: "voice.ogg",
	}
	if p.Language != Auto {
		req.Language = p.Short()
	}
	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.Text, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}
