package forum

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ddrelay/internal/domain"
)

const SourceID = "forum"

// Config holds forum source configuration.
type Config struct {
	FrontPageURL   string
	ArticlePrefix  string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source scrapes the forum front page and diary detail pages.
type Source struct {
	httpClient     *http.Client
	frontPageURL   string
	articlePrefix  string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new forum source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		frontPageURL:   cfg.FrontPageURL,
		articlePrefix:  cfg.ArticlePrefix,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// FetchListing fetches the front page and returns its article entries in
// page order.
func (s *Source) FetchListing(ctx context.Context) ([]domain.ArticleStub, error) {
	page, err := s.fetchPage(ctx, s.frontPageURL)
	if err != nil {
		return nil, err
	}

	stubs, err := parseListing(page, s.articlePrefix, s.logger)
	if err != nil {
		return nil, &domain.FetchError{URL: s.frontPageURL, Cause: err}
	}

	s.logger.Debug("fetched listing", "articles", len(stubs))
	return stubs, nil
}

// FetchDetail fetches a diary page. Network failures are reported as
// *domain.FetchError; missing page elements wrap domain.ErrMalformedPage.
func (s *Source) FetchDetail(ctx context.Context, url string) (*domain.DiaryDetail, error) {
	page, err := s.fetchPage(ctx, url)
	if err != nil {
		return nil, err
	}

	detail, err := parseDetail(page)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return detail, nil
}

func (s *Source) fetchPage(ctx context.Context, url string) ([]byte, error) {
	var page []byte
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		page, err = s.doRequest(ctx, url)
		if err == nil {
			return page, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, &domain.FetchError{URL: url, Cause: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	return nil, &domain.FetchError{URL: url, Cause: fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)}
}

func (s *Source) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "ddrelay/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
