package rehost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ddrelay/internal/domain"
)

// Uploader stores image bytes on an external media host and returns the
// public link.
type Uploader interface {
	Upload(ctx context.Context, image []byte, name string) (string, error)
}

// Cache maps source image URLs to rehosted links. An entry is written once
// and never replaced, so a source URL is uploaded at most once.
type Cache struct {
	entries    map[string]string
	uploader   Uploader
	httpClient *http.Client
	logger     *slog.Logger
}

func NewCache(uploader Uploader, timeout time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		entries:    make(map[string]string),
		uploader:   uploader,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "rehost"),
	}
}

// Restore seeds the cache with persisted entries. Existing entries win.
func (c *Cache) Restore(entries map[string]string) {
	for src, link := range entries {
		if _, ok := c.entries[src]; !ok {
			c.entries[src] = link
		}
	}
}

// Entries returns a copy of every cached mapping.
func (c *Cache) Entries() map[string]string {
	out := make(map[string]string, len(c.entries))
	for src, link := range c.entries {
		out[src] = link
	}
	return out
}

// Resolve returns the rehosted link for sourceURL, uploading the image on
// the first request only. Failures leave the cache untouched.
func (c *Cache) Resolve(ctx context.Context, sourceURL string) (string, error) {
	if link, ok := c.entries[sourceURL]; ok {
		return link, nil
	}

	image, finalURL, err := c.download(ctx, sourceURL)
	if err != nil {
		return "", &domain.RehostError{SourceURL: sourceURL, Cause: err}
	}

	link, err := c.uploader.Upload(ctx, image, finalURL)
	if err != nil {
		return "", &domain.RehostError{SourceURL: sourceURL, Cause: fmt.Errorf("upload: %w", err)}
	}

	c.entries[sourceURL] = link
	c.logger.Info("rehosted image",
		"source", sourceURL,
		"final", finalURL,
		"link", link,
	)
	return link, nil
}

// download follows the redirect chain and returns the bytes served at its
// end along with the final location.
func (c *Cache) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ddrelay/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	return image, resp.Request.URL.String(), nil
}
