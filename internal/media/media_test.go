package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeResolver struct {
	path string
	err  error
}

func (f fakeResolver) FileByID(id string) (tele.File, error) {
	return tele.File{FileID: id, FilePath: f.path}, f.err
}

func oggHeader() []byte {
	b := make([]byte, 48)
	copy(b, "OggS")
	copy(b[28:], "OpusHead")
	return b
}

func TestIsOgg(t *testing.T) {
	assert.True(t, IsOgg(oggHeader()))
	assert.False(t, IsOgg([]byte("plain text")))
	assert.Equal(t, "text/plain; charset=utf-8", DetectMIME([]byte("plain text")))
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/voice/file_1.oga", r.URL.Path)
		w.Write(oggHeader())
	}))
	defer srv.Close()

	d := NewTelegramDownloader(fakeResolver{path: "voice/file_1.oga"}, "token").WithBaseURL(srv.URL)
	data, err := d.Download(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, IsOgg(data))
}

func TestDownloadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewTelegramDownloader(fakeResolver{path: "x"}, "token").WithBaseURL(srv.URL)
	_, err := d.Download(context.Background(), "abc")
	assert.Error(t, err)

	_, err = d.Download(context.Background(), "")
	assert.Error(t, err)

	boom := errors.New("no such file")
	d = NewTelegramDownloader(fakeResolver{err: boom}, "token").WithBaseURL(srv.URL)
	_, err = d.Download(context.Background(), "abc")
	assert.ErrorIs(t, err, boom)
}
