package speech

import (
	"context"

	"github.com/roelfdiedericks/parrot/internal/yandex"
)

// YandexProvider serves SpeechKit voices.
type YandexProvider struct {
	client *yandex.Client
}

func NewYandexProvider(client *yandex.Client) *YandexProvider {
	return &YandexProvider{client: client}
}

func (y *YandexProvider) Synthesize(ctx context.Context, p Profile, text string) ([]byte, error) {
	return y.client.Synthesize(ctx, text, p.Voice, p.Language)
}

// Recognize omits the language for auto profiles so SpeechKit uses its default model.
func (y *YandexProvider) Recognize(ctx context.Context, p Profile, audio []byte) (string, error) {
	lang := p.Language
	if lang == Auto {
		lang = ""
	}
	return y.client.Recognize(ctx, audio, lang)
}

func (y *YandexProvider) Name() string {
	return "yandex"
}
