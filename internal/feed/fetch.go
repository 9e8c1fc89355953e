// Package feed fetches upstream sources and normalizes their items into
// the canonical shape the ingestion pipeline consumes.
package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"cryptonews/internal/model"
	"cryptonews/internal/retry"
)

var (
	// ErrUnrecognizedFormat marks a payload that is neither RSS nor Atom.
	ErrUnrecognizedFormat = errors.New("unrecognized feed format")
	// ErrRateLimited marks an upstream 429; the source is retried next cycle.
	ErrRateLimited = errors.New("feed rate limited")
)

const maxFeedBytes = 10 << 20

// Client fetches and parses one source's feed over HTTP.
type Client struct {
	http     *http.Client
	parser   *gofeed.Parser
	retryCfg retry.Config
	maxItems int
}

func NewClient(timeout time.Duration, retryCfg retry.Config, maxItems int) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		parser:   gofeed.NewParser(),
		retryCfg: retryCfg,
		maxItems: maxItems,
	}
}

// Fetch downloads src's feed and returns its normalized items. Transient
// HTTP failures are retried within the call; anything still failing is
// returned to the caller, which skips the source for this cycle.
func (c *Client) Fetch(ctx context.Context, src model.Source) ([]model.Item, error) {
	var raw []byte

	err := retry.Do(ctx, c.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.FeedURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "cryptonews/1.0")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			// Hammering a rate-limiting upstream with immediate retries makes
			// it worse; give up now and let the next cycle try again.
			return retry.Permanent(fmt.Errorf("%w: %s", ErrRateLimited, src.FeedURL))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("feed fetch %s: status %d", src.FeedURL, resp.StatusCode)
		}

		raw, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.ParseBytes(raw, src, time.Now())
}

// ParseBytes parses a raw XML payload and normalizes it. Split from Fetch
// so parsing is testable against literal documents.
func (c *Client) ParseBytes(raw []byte, src model.Source, now time.Time) ([]model.Item, error) {
	doc := string(raw)

	// Some upstreams serve the channel element bare, without the rss
	// wrapper gofeed's type detection keys on. Re-wrap before parsing.
	if rootElement(doc) == "channel" {
		doc = `<rss version="2.0">` + doc + `</rss>`
	}

	f, err := c.parser.ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	return Normalize(f, src, c.maxItems, now), nil
}

// rootElement returns the local name of the document's root element, or ""
// when no element can be read.
func rootElement(doc string) string {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}
