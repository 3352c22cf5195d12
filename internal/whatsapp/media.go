package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ledgerpal/ledgerpal/internal/model"
)

// extensions maps Twilio media content types onto file extensions. Anything
// not listed falls back to .bin; the gateway decides usefulness from the
// content type, not the extension.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"audio/ogg":  ".oga",
	"audio/amr":  ".amr",
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/wav":  ".wav",
}

// MediaDownloader fetches provider-hosted message media into a local
// directory tree so the gateway can read it as files. Twilio media URLs
// require the account's basic-auth credentials.
type MediaDownloader struct {
	client     *http.Client
	logger     *slog.Logger
	accountSID string
	authToken  string
	mediaRoot  string
}

// NewMediaDownloader creates a downloader rooted at mediaRoot.
func NewMediaDownloader(accountSID, authToken, mediaRoot string, logger *slog.Logger) *MediaDownloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaDownloader{
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		accountSID: accountSID,
		authToken:  authToken,
		mediaRoot:  mediaRoot,
	}
}

// Fetch downloads every attachment on the message and fills in LocalPath.
// Files land under <mediaRoot>/<YYYY-MM-DD>/<messageSID>/ so a day's media
// can be swept in one pass. An attachment that fails to download is logged
// and left without a LocalPath rather than failing the message.
func (d *MediaDownloader) Fetch(ctx context.Context, msg *model.InboundMessage) error {
	if !msg.HasMedia() {
		return nil
	}

	dir := filepath.Join(d.mediaRoot, time.Now().UTC().Format("2006-01-02"), msg.MessageSID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}

	for i := range msg.Media {
		att := &msg.Media[i]
		path := filepath.Join(dir, fmt.Sprintf("media%d%s", i, extensionFor(att.ContentType)))
		if err := d.download(ctx, att.URL, path); err != nil {
			d.logger.Warn("failed to download media attachment",
				"message_sid", msg.MessageSID,
				"url", att.URL,
				"error", err)
			continue
		}
		att.LocalPath = path
	}

	return nil
}

func (d *MediaDownloader) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build media request: %w", err)
	}
	req.SetBasicAuth(d.accountSID, d.authToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("media request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media request returned status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("failed to create media file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write media file: %w", err)
	}

	return f.Close()
}

func extensionFor(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return ".bin"
}
