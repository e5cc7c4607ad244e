package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"
)

// PageDownloader saves single remote files to disk. A transfer is written
// to a temporary file next to the destination and renamed into place only
// once the body has been fully received.
type PageDownloader struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

func NewPageDownloader(client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *PageDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PageDownloader{client: client, limiter: limiter, logger: logger}
}

// WithUserAgent sets the User-Agent header sent with every request.
func (d *PageDownloader) WithUserAgent(ua string) *PageDownloader {
	d.userAgent = ua
	return d
}

// Download fetches sourceURL into destPath. If destPath already exists and
// replace is false nothing is transferred.
//
// Transport failures (including a cancelled ctx) are reported as false with
// a nil error; the destination is left untouched. The error return is for
// invalid arguments and local filesystem failures.
func (d *PageDownloader) Download(ctx context.Context, sourceURL, destPath string, replace bool) (bool, error) {
	if sourceURL == "" {
		return false, fmt.Errorf("source url cannot be empty")
	}
	if destPath == "" {
		return false, fmt.Errorf("destination path cannot be empty")
	}

	if info, err := os.Stat(destPath); err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("destination %s is a directory", destPath)
		}
		if !replace {
			d.logger.Debug("file exists, skipping", "path", destPath)
			return true, nil
		}
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return false, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return false, fmt.Errorf("invalid source url: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("page request failed", "url", sourceURL, "error", err)
		return false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Warn("page request failed", "url", sourceURL, "status", resp.Status)
		return false, nil
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()

	switch {
	case copyErr != nil:
		os.Remove(tmpPath)
		d.logger.Warn("page transfer interrupted", "url", sourceURL, "error", copyErr)
		return false, nil
	case resp.ContentLength >= 0 && n != resp.ContentLength:
		os.Remove(tmpPath)
		d.logger.Warn("page transfer truncated", "url", sourceURL, "got", n, "want", resp.ContentLength)
		return false, nil
	case closeErr != nil:
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to write %s: %w", destPath, closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to move %s into place: %w", destPath, err)
	}
	return true, nil
}
