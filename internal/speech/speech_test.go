package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		voice, lang string
		ok          bool
	}{
		{"marina", "ru-RU", true},
		{"alloy", "en-US", true},
		{"marina", Auto, true},
		{"google", "ru-RU", false},
		{"marina", "ru", false},
		{"marina", "ru_RU", false},
		{"marina", "", false},
	}
	for _, tt := range tests {
		_, err := NewProfile(tt.voice, tt.lang)
		if tt.ok {
			assert.NoError(t, err, "%s/%s", tt.voice, tt.lang)
		} else {
			assert.Error(t, err, "%s/%s", tt.voice, tt.lang)
		}
	}
}

func TestProfileSetters(t *testing.T) {
	p := Profile{Voice: "marina", Language: "ru-RU"}
	require.NoError(t, p.SetVoice("nova"))
	assert.Equal(t, BackendOpenAI, p.Backend())
	assert.Error(t, p.SetVoice("nobody"))
	assert.Equal(t, "nova", p.Voice)

	require.NoError(t, p.SetLanguage("en-US"))
	assert.Equal(t, "en", p.Short())
	assert.Error(t, p.SetLanguage("english"))
	assert.Equal(t, "en-US", p.Language)

	assert.Equal(t, Auto, Short(Auto))
}

func TestCatalogsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range Voices {
		assert.False(t, seen[v.ID], "duplicate voice %s", v.ID)
		seen[v.ID] = true
	}
	for _, l := range Languages {
		assert.True(t, ValidLanguage(l.Tag), l.Tag)
	}
}

type fakeProvider struct {
	name       string
	synthCalls []Profile
	recCalls   int
	text       string
	err        error
}

func (f *fakeProvider) Synthesize(_ context.Context, p Profile, text string) ([]byte, error) {
	f.synthCalls = append(f.synthCalls, p)
	return []byte(f.name + ":" + text), f.err
}

func (f *fakeProvider) Recognize(_ context.Context, p Profile, audio []byte) (string, error) {
	f.recCalls++
	return f.text, f.err
}

func (f *fakeProvider) Name() string { return f.name }

func TestEngineSynthesizeRoutesByVoice(t *testing.T) {
	y := &fakeProvider{name: "yandex"}
	o := &fakeProvider{name: "openai"}
	e, err := NewEngine("ru-RU", y, o)
	require.NoError(t, err)

	out, err := e.Synthesize(context.Background(), Profile{Voice: "marina", Language: Auto}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "yandex:hi", string(out))
	require.Len(t, y.synthCalls, 1)
	assert.Equal(t, "ru-RU", y.synthCalls[0].Language, "auto replaced by default")

	out, err = e.Synthesize(context.Background(), Profile{Voice: "onyx", Language: "en-US"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "openai:hi", string(out))
}

func TestEngineMissingBackend(t *testing.T) {
	e, err := NewEngine("ru-RU", &fakeProvider{name: "yandex"}, nil)
	require.NoError(t, err)
	_, err = e.Synthesize(context.Background(), Profile{Voice: "alloy", Language: "en-US"}, "hi")
	assert.Error(t, err)

	_, err = NewEngine("ru-RU", nil, nil)
	assert.Error(t, err)
	_, err = NewEngine(Auto, &fakeProvider{}, nil)
	assert.Error(t, err)
}

func TestEngineRecognizeTrimsAndRoutes(t *testing.T) {
	y := &fakeProvider{name: "yandex", text: "  short note \n"}
	o := &fakeProvider{name: "openai", text: "long note"}
	e, err := NewEngine("ru-RU", y, o)
	require.NoError(t, err)

	text, err := e.Recognize(context.Background(), Profile{Voice: "marina", Language: "ru-RU"}, oggNote(t, 5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "short note", text)
	assert.Equal(t, 1, y.recCalls)

	text, err = e.Recognize(context.Background(), Profile{Voice: "marina", Language: "ru-RU"}, oggNote(t, 45*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "long note", text)
	assert.Equal(t, 1, o.recCalls)

	// unreadable audio stays on the synchronous backend
	_, err = e.Recognize(context.Background(), Profile{Voice: "marina", Language: "ru-RU"}, []byte("junk"))
	require.NoError(t, err)
	assert.Equal(t, 2, y.recCalls)
}

func TestEngineRecognizeWrapsError(t *testing.T) {
	boom := errors.New("boom")
	e, err := NewEngine("ru-RU", &fakeProvider{name: "yandex", err: boom}, nil)
	require.NoError(t, err)
	_, err = e.Recognize(context.Background(), Profile{Voice: "marina", Language: "ru-RU"}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestDuration(t *testing.T) {
	d, err := Duration(oggNote(t, 12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, d)

	_, err = Duration([]byte("not ogg"))
	assert.Error(t, err)
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		switch {
		case strings.HasSuffix(r.URL.Path, "/audio/speech"):
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"voice":"nova"`)
			assert.Contains(t, string(body), `"response_format":"opus"`)
			w.Header().Set("Content-Type", "audio/ogg")
			w.Write([]byte("opus-bytes"))
		case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "whisper-1", r.FormValue("model"))
			assert.Equal(t, "en", r.FormValue("language"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"text":"hello from whisper"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), Profile{Voice: "nova", Language: "en-US"}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "opus-bytes", string(audio))

	text, err := p.Recognize(context.Background(), Profile{Voice: "nova", Language: "en-US"}, []byte("ogg"))
	require.NoError(t, err)
	assert.Equal(t, "hello from whisper", text)
}

// oggNote builds a minimal Ogg/Opus stream of the given length: an
// OpusHead page followed by one audio page carrying the final granule.
func oggNote(t *testing.T, d time.Duration) []byte {
	t.Helper()
	const preSkip = 312

	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1 // version
	head[9] = 1 // channels
	binary.LittleEndian.PutUint16(head[10:], preSkip)
	binary.LittleEndian.PutUint32(head[12:], 48000)

	granule := uint64(d/time.Second)*opusGranuleRate + preSkip

	var out []byte
	out = append(out, oggPage(0x02, 0, 0, head)...)
	out = append(out, oggPage(0x04, granule, 1, []byte{0xfc, 0xff, 0xfe})...)
	return out
}

func oggPage(headerType byte, granule uint64, index uint32, payload []byte) []byte {
	page := make([]byte, 27, 27+1+len(payload))
	copy(page, "OggS")
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:], granule)
	binary.LittleEndian.PutUint32(page[14:], 1) // serial
	binary.LittleEndian.PutUint32(page[18:], index)
	page[26] = 1 // one segment
	page = append(page, byte(len(payload)))
	page = append(page, payload...)

	binary.LittleEndian.PutUint32(page[22:], oggChecksum(page))
	return page
}

func oggChecksum(page []byte) uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	var crc uint32
	for _, b := range page {
		crc = (crc << 8) ^ table[byte(crc>>24)^b]
	}
	return crc
}
