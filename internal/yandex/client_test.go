package yandex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/parrot/internal/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		APIKey:       "key",
		FolderID:     "folder",
		TTSURL:       srv.URL + "/tts",
		STTURL:       srv.URL + "/stt",
		TranslateURL: srv.URL + "/translate/v2",
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestSynthesize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tts", r.URL.Path)
		assert.Equal(t, "Api-Key key", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("text"))
		assert.Equal(t, "marina", r.PostForm.Get("voice"))
		assert.Equal(t, "ru-RU", r.PostForm.Get("lang"))
		assert.Equal(t, "oggopus", r.PostForm.Get("format"))
		assert.Equal(t, "folder", r.PostForm.Get("folderId"))
		w.Write([]byte("OggS-audio"))
	})

	audio, err := c.Synthesize(context.Background(), "hello", "marina", "ru-RU")
	require.NoError(t, err)
	assert.Equal(t, []byte("OggS-audio"), audio)
}

func TestRecognize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stt", r.URL.Path)
		assert.Equal(t, "en-US", r.URL.Query().Get("lang"))
		assert.Equal(t, "general", r.URL.Query().Get("topic"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "voice", string(body))
		w.Write([]byte(`{"result":"hi there"}`))
	})

	text, err := c.Recognize(context.Background(), []byte("voice"), "en-US")
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}

func TestRecognizeOmitsEmptyLang(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["lang"]
		assert.False(t, ok)
		w.Write([]byte(`{"result":""}`))
	})
	text, err := c.Recognize(context.Background(), []byte("voice"), "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestDetectAndTranslate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "folder", req["folderId"])
		switch r.URL.Path {
		case "/translate/v2/detect":
			assert.Equal(t, "Hello", req["text"])
			assert.Equal(t, []any{"ru", "en"}, req["languageCodeHints"])
			w.Write([]byte(`{"languageCode":"en"}`))
		case "/translate/v2/translate":
			assert.Equal(t, "en", req["sourceLanguageCode"])
			assert.Equal(t, "ru", req["targetLanguageCode"])
			assert.Equal(t, []any{"Hello"}, req["texts"])
			w.Write([]byte(`{"translations":[{"text":"Привет"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	lang, err := c.Detect(context.Background(), "Hello", []string{"ru", "en"})
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	out, err := c.Translate(context.Background(), "Hello", "ru", "en")
	require.NoError(t, err)
	assert.Equal(t, "Привет", out)
}

func TestAPIErrorDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error_code":"UNAUTHORIZED","error_message":"bad key"}`))
	})

	_, err := c.Synthesize(context.Background(), "x", "marina", "")
	var api *types.APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, http.StatusUnauthorized, api.Status)
	assert.Equal(t, "bad key", api.Message)
	assert.Equal(t, "speechkit-tts", api.Service)
}
