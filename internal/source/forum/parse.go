package forum

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"ddrelay/internal/domain"
)

func parseListing(page []byte, articlePrefix string, logger *slog.Logger) ([]domain.ArticleStub, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var stubs []domain.ArticleStub
	doc.Find(".articleItem").Each(func(_ int, item *goquery.Selection) {
		id, ok := item.Attr("id")
		if !ok || id == "" {
			logger.Warn("listing item without id")
			return
		}

		link := item.Find(".subHeading a").First()
		href, ok := link.Attr("href")
		if !ok {
			logger.Warn("listing item without title link", "id", id)
			return
		}

		stubs = append(stubs, domain.ArticleStub{
			ID:        id,
			Title:     strings.TrimSpace(link.Text()),
			DetailURL: articlePrefix + href,
		})
	})

	return stubs, nil
}

func parseDetail(page []byte) (*domain.DiaryDetail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPage, err)
	}

	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return nil, fmt.Errorf("%w: no title heading", domain.ErrMalformedPage)
	}

	message := doc.Find(".message").First()
	if message.Length() == 0 {
		return nil, fmt.Errorf("%w: no message container", domain.ErrMalformedPage)
	}

	body := message.Find(".messageText").First()
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: no message body", domain.ErrMalformedPage)
	}

	author := message.Find(".author").First()
	if author.Length() == 0 {
		return nil, fmt.Errorf("%w: no author", domain.ErrMalformedPage)
	}

	stamp := message.Find(".messageMeta .DateTime").First()
	if stamp.Length() == 0 {
		return nil, fmt.Errorf("%w: no timestamp", domain.ErrMalformedPage)
	}
	publishedAt, err := parseTimestamp(stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPage, err)
	}

	return &domain.DiaryDetail{
		Title:         strings.TrimSpace(heading.Text()),
		Game:          strings.TrimSpace(doc.Find(".crumb").Last().Text()),
		Author:        strings.TrimSpace(author.Text()),
		PublishedAt:   publishedAt,
		PublishedText: strings.TrimSpace(stamp.Text()),
		Body:          Wrap(body.Nodes[0]),
	}, nil
}

// parseTimestamp prefers the epoch-seconds attribute and falls back to the
// human-readable title.
func parseTimestamp(stamp *goquery.Selection) (time.Time, error) {
	if raw, ok := stamp.Attr("data-time"); ok && raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse data-time %q: %w", raw, err)
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	if raw, ok := stamp.Attr("title"); ok && raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse title %q: %w", raw, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("timestamp has neither data-time nor title")
}
