// Package scraper does best-effort retrieval of full article body text.
// Every failure path yields an empty string; scraping never aborts the
// ingestion pipeline.
package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"cryptonews/internal/logger"
	"cryptonews/internal/metrics"
)

// contentSelectors is tried in priority order; the first non-empty match
// wins.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".entry-content",
	"main",
	"#content",
	"#main",
	".main-content",
}

const maxPageBytes = 5 << 20

type Scraper struct {
	client *http.Client
}

func New(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		client: &http.Client{Timeout: timeout},
	}
}

// Extract fetches pageURL and returns its readable body text, or "" when
// the page cannot be fetched or matches no known structure.
func (s *Scraper) Extract(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "cryptonews/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Debug("scrape fetch failed", "url", pageURL, "err", err)
		metrics.Global.IncrementScrapeFailures()
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("scrape fetch failed", "url", pageURL, "status", resp.StatusCode)
		metrics.Global.IncrementScrapeFailures()
		return ""
	}

	body, err := readBody(resp)
	if err != nil {
		metrics.Global.IncrementScrapeFailures()
		return ""
	}

	return extractText(body, pageURL)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(http.MaxBytesReader(nil, resp.Body, maxPageBytes))
	return buf.Bytes(), err
}

// extractText walks the selector priority list, then falls back to
// readability extraction for pages matching none of the known structures.
func extractText(body []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	for _, selector := range contentSelectors {
		text := collapseWhitespace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}

	if u, err := url.Parse(pageURL); err == nil {
		if art, rerr := readability.FromReader(bytes.NewReader(body), u); rerr == nil {
			return collapseWhitespace(art.TextContent)
		}
	}
	return ""
}

// collapseWhitespace folds runs of whitespace into single spaces and trims.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
