package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/franz/tutorial-bot/internal/util"
)

// Downloader fetches finished videos
type Downloader struct {
	httpClient *http.Client

	// ShowProgress draws a progress bar on stderr
	ShowProgress bool
}

// NewDownloader creates a downloader. Progress is shown on a terminal unless
// logging is quiet.
func NewDownloader() *Downloader {
	return &Downloader{
		httpClient:   &http.Client{Timeout: 30 * time.Minute},
		ShowProgress: util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet(),
	}
}

// Download streams url into dest and returns the number of bytes written.
// The file appears at dest only once the transfer is complete.
func (d *Downloader) Download(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create download directory: %w", err)
		}
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(d.ShowProgress),
	)

	n, err := io.Copy(io.MultiWriter(f, bar), resp.Body)
	_ = bar.Finish()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("download interrupted after %s: %w", humanize.Bytes(uint64(n)), err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		os.Remove(tmp)
		return n, fmt.Errorf("short download: got %d of %d bytes", n, resp.ContentLength)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}
