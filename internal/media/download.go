package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// DownloadTimeout is the maximum time to wait for a file download
const DownloadTimeout = 30 * time.Second

// MaxDownloadBytes caps a single file download (Bot API limit is 20 MB).
const MaxDownloadBytes = 20 << 20

// DefaultFileURL is the Bot API file endpoint.
const DefaultFileURL = "https://api.telegram.org/file"

// FileResolver resolves a file id to its server-side path. *tele.Bot implements it.
type FileResolver interface {
	FileByID(fileID string) (tele.File, error)
}

// TelegramDownloader downloads files through the Bot API.
type TelegramDownloader struct {
	files   FileResolver
	token   string
	baseURL string
	client  *http.Client
}

// NewTelegramDownloader creates a downloader for bot's files.
func NewTelegramDownloader(files FileResolver, token string) *TelegramDownloader {
	return &TelegramDownloader{
		files:   files,
		token:   token,
		baseURL: DefaultFileURL,
		client:  &http.Client{Timeout: DownloadTimeout},
	}
}

// WithBaseURL overrides the file endpoint.
func (d *TelegramDownloader) WithBaseURL(url string) *TelegramDownloader {
	d.baseURL = url
	return d
}

// Download fetches the file referenced by fileID.
func (d *TelegramDownloader) Download(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("invalid file: missing FileID")
	}

	info, err := d.files.FileByID(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", d.baseURL, d.token, info.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if len(data) > MaxDownloadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", MaxDownloadBytes)
	}

	L_debug("media: downloaded", "file", fileID, "bytes", len(data), "mime", DetectMIME(data))
	return data, nil
}
