package dialogue

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	ImageSize string // default 1024x1024
}

// OpenAIProvider serves OpenAI chat and image models.
type OpenAIProvider struct {
	client    *openai.Client
	imageSize string
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = openai.CreateImageSize1024x1024
	}

	L_info("dialogue: openai provider initialized", "baseURL", config.BaseURL)

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(config),
		imageSize: cfg.ImageSize,
	}, nil
}

func (o *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Complete(ctx context.Context, model string, history []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: openAIRole(m.Role), Content: m.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	L_debug("dialogue: openai usage", "model", model, "prompt", resp.Usage.PromptTokens, "completion", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Imagine(ctx context.Context, model, prompt string) (Image, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Model:          model,
		Prompt:         prompt,
		Size:           o.imageSize,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return Image{}, err
	}
	if len(resp.Data) == 0 {
		return Image{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}
	return Image{Data: data, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

func openAIRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
