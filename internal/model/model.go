package model

import "time"

// SourceKind distinguishes polled feeds from push channels.
type SourceKind string

const (
	SourceKindRSS  SourceKind = "rss"
	SourceKindPush SourceKind = "push"
)

// Article source types as persisted in source_type.
const (
	SourceTypeRSS       = "rss"
	SourceTypeWebsocket = "websocket"
	SourceTypeTelegram  = "telegram"
)

// Source is one configured upstream feed. It is owned by the admin surface;
// the ingestion core only reads it and advances LastScrapedAt after a
// successful poll cycle.
type Source struct {
	ID            int64
	Name          string
	FeedURL       string
	Kind          SourceKind
	Academic      bool
	LastScrapedAt time.Time
	CreatedAt     time.Time
}

// Item is the canonical post-parse shape of one feed entry, independent of
// the source dialect. Link is never empty (synthesized when the payload has
// no native link) because it is the dedup key; Title falls back to a
// placeholder for the same reason.
type Item struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Summary     string
}

// Article is the durable record, keyed by its unique link. The orchestrator
// creates it exactly once; enrichment workers are the only mutators after
// the initial insert.
type Article struct {
	ID                int64
	Link              string
	Title             string
	TitleTranslated   string
	Source            string
	SourceType        string
	PublishedAt       time.Time
	ScrapedAt         time.Time
	Tags              []string
	Keywords          []string
	Summary           string
	SummaryTranslated string
	Content           string
}
