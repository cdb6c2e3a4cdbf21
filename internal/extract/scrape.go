package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kjannette/market-etl/internal/dataset"
	"github.com/kjannette/market-etl/internal/httputil"
)

// Raw article columns as written by the scraper.
const (
	ColTitle = "Title"
	ColLink  = "Link"
)

// ScrapeHeadlines fetches an HTML page and returns one (Title, Link) row per
// anchor found inside a headline element. Elements without an anchor add
// nothing. The request is bounded by the scrape timeout and is not retried.
func (e *Extractor) ScrapeHeadlines(ctx context.Context, pageURL string) (*dataset.Frame, error) {
	frame, err := e.scrape(ctx, pageURL)
	if err != nil {
		e.logger.Error("scrape failed", "url", redact(pageURL), "error", err)
		e.discard(e.opts.ArticlesFile)
		return dataset.Empty(), err
	}
	e.logger.Info("headlines scraped", "url", redact(pageURL), "articles", frame.Len())

	if err := e.stage(frame, e.opts.ArticlesFile); err != nil {
		return dataset.Empty(), err
	}
	return frame, nil
}

func (e *Extractor) scrape(ctx context.Context, pageURL string) (*dataset.Frame, error) {
	if pageURL == "" {
		return nil, errors.New("no article url configured")
	}
	body, err := httputil.Get(ctx, e.webClient, httputil.RetryConfig{MaxAttempts: 1, Logger: e.logger}, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return e.headlines(doc), nil
}

func (e *Extractor) headlines(doc *goquery.Document) *dataset.Frame {
	frame := &dataset.Frame{Columns: []string{ColTitle, ColLink}}
	doc.Find(e.opts.HeadlineTag).Each(func(_ int, s *goquery.Selection) {
		if e.opts.HeadlineClass != "" && !s.HasClass(e.opts.HeadlineClass) {
			return
		}
		s.Find("a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			frame.Rows = append(frame.Rows, []string{strings.TrimSpace(a.Text()), href})
		})
	})
	return frame
}

// redact drops credentials and the query string (API keys usually ride there).
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
