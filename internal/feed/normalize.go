package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"cryptonews/internal/model"
)

// Placeholder when no title field resolves. The link, not the title, is the
// identity of an item, so ingestion proceeds.
const noTitle = "No Title"

// Normalize converts a parsed feed into canonical items. Frequently polled
// sources are capped at maxItems per cycle to bound work; academic sources
// (arXiv-style, low frequency) keep their full item list and their
// feed-provided summary.
func Normalize(f *gofeed.Feed, src model.Source, maxItems int, now time.Time) []model.Item {
	items := make([]model.Item, 0, len(f.Items))
	for _, it := range f.Items {
		items = append(items, normalizeItem(it, src, now))
	}

	if !src.Academic && maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func normalizeItem(it *gofeed.Item, src model.Source, now time.Time) model.Item {
	out := model.Item{
		Title:       resolveTitle(it),
		Link:        resolveLink(it, src),
		PublishedAt: resolvePublished(it, now),
	}

	// Academic feeds carry the abstract in the description; everything else
	// gets its summary from the enrichment pass, not here.
	if src.Academic {
		out.Summary = strings.TrimSpace(it.Description)
	}
	return out
}

// resolveLink falls through the link representations gofeed leaves after
// parsing (plain RSS link and Atom href both land in Link), then a bare
// url element, then synthesizes a source-scoped link so the dedup key is
// never empty.
func resolveLink(it *gofeed.Item, src model.Source) string {
	if it.Link != "" {
		return it.Link
	}
	if len(it.Links) > 0 && it.Links[0] != "" {
		return it.Links[0]
	}
	if u, ok := it.Custom["url"]; ok && u != "" {
		return u
	}
	if it.GUID != "" {
		return SynthesizeLink(src.Name, it.GUID)
	}
	return SynthesizeLink(src.Name, uuid.NewString())
}

func resolveTitle(it *gofeed.Item) string {
	if t := strings.TrimSpace(it.Title); t != "" {
		return t
	}
	for _, field := range []string{"text", "news_title"} {
		if t, ok := it.Custom[field]; ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return noTitle
}

// resolvePublished tries the parsed timestamps, then a lenient parse of the
// raw date strings, and finally falls back to processing time. Never zero.
func resolvePublished(it *gofeed.Item, now time.Time) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	for _, raw := range []string{it.Published, it.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
	}
	return now
}

// SynthesizeLink builds the channel/messageID stand-in link for items that
// have no native URL.
func SynthesizeLink(channel, messageID string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "push"
	}
	return fmt.Sprintf("%s/%s", channel, messageID)
}

// NormalizePush resolves one inbound push-channel payload (Telegram-channel
// shaped JSON) into a canonical item. The probing order mirrors the shapes
// observed upstream: plain string link, object with href, attribute-style
// @_href, a url field, and finally a synthesized channel/messageID link.
func NormalizePush(payload map[string]any, channel string, now time.Time) model.Item {
	return model.Item{
		Title:       pushTitle(payload),
		Link:        pushLink(payload, channel),
		PublishedAt: pushPublished(payload, now),
		Summary:     pushString(payload, "description", "summary"),
	}
}

func pushLink(payload map[string]any, channel string) string {
	switch link := payload["link"].(type) {
	case string:
		if link != "" {
			return link
		}
	case map[string]any:
		for _, key := range []string{"href", "@_href"} {
			if href, ok := link[key].(string); ok && href != "" {
				return href
			}
		}
	}

	if u, ok := payload["url"].(string); ok && u != "" {
		return u
	}

	if id := pushString(payload, "message_id", "messageId", "id"); id != "" {
		return SynthesizeLink(channel, id)
	}
	return SynthesizeLink(channel, uuid.NewString())
}

func pushTitle(payload map[string]any) string {
	if t := pushString(payload, "title", "text", "news_title"); t != "" {
		return t
	}
	return noTitle
}

func pushPublished(payload map[string]any, now time.Time) time.Time {
	for _, key := range []string{"pubDate", "isoDate", "published", "updated"} {
		raw, ok := payload[key].(string)
		if !ok || raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
	}
	return now
}

// pushString returns the first non-empty string among the given keys,
// stringifying JSON numbers so numeric message IDs resolve too.
func pushString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
