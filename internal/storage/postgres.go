// Package storage persists sources and articles in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"cryptonews/internal/model"
)

type Storage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// InitSchema creates the tables if they don't exist. The UNIQUE constraint
// on articles.link is the defense-in-depth behind the dedup gate.
func (s *Storage) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		feed_url TEXT NOT NULL,
		kind VARCHAR(16) NOT NULL DEFAULT 'rss',
		academic BOOLEAN NOT NULL DEFAULT FALSE,
		last_scraped_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS articles (
		id SERIAL PRIMARY KEY,
		link TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		title_translated TEXT,
		source VARCHAR(100),
		source_type VARCHAR(16) NOT NULL DEFAULT 'rss',
		published_at TIMESTAMP NOT NULL,
		scraped_at TIMESTAMP NOT NULL DEFAULT NOW(),
		tags TEXT[] NOT NULL DEFAULT '{}',
		keywords TEXT[] NOT NULL DEFAULT '{}',
		summary TEXT,
		summary_translated TEXT,
		content TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_articles_link ON articles(link);
	CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at);
	CREATE INDEX IF NOT EXISTS idx_articles_scraped_at ON articles(scraped_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

type dbSource struct {
	ID            int64        `db:"id"`
	Name          string       `db:"name"`
	FeedURL       string       `db:"feed_url"`
	Kind          string       `db:"kind"`
	Academic      bool         `db:"academic"`
	LastScrapedAt sql.NullTime `db:"last_scraped_at"`
	CreatedAt     time.Time    `db:"created_at"`
}

type dbArticle struct {
	ID                int64          `db:"id"`
	Link              string         `db:"link"`
	Title             string         `db:"title"`
	TitleTranslated   sql.NullString `db:"title_translated"`
	Source            sql.NullString `db:"source"`
	SourceType        string         `db:"source_type"`
	PublishedAt       time.Time      `db:"published_at"`
	ScrapedAt         time.Time      `db:"scraped_at"`
	Tags              pq.StringArray `db:"tags"`
	Keywords          pq.StringArray `db:"keywords"`
	Summary           sql.NullString `db:"summary"`
	SummaryTranslated sql.NullString `db:"summary_translated"`
	Content           sql.NullString `db:"content"`
}

func (a dbArticle) toModel() model.Article {
	return model.Article{
		ID:                a.ID,
		Link:              a.Link,
		Title:             a.Title,
		TitleTranslated:   a.TitleTranslated.String,
		Source:            a.Source.String,
		SourceType:        a.SourceType,
		PublishedAt:       a.PublishedAt,
		ScrapedAt:         a.ScrapedAt,
		Tags:              a.Tags,
		Keywords:          a.Keywords,
		Summary:           a.Summary.String,
		SummaryTranslated: a.SummaryTranslated.String,
		Content:           a.Content.String,
	}
}

// Sources returns all configured feed sources.
func (s *Storage) Sources(ctx context.Context) ([]model.Source, error) {
	var rows []dbSource
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM sources ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select sources: %w", err)
	}

	return lo.Map(rows, func(r dbSource, _ int) model.Source {
		return model.Source{
			ID:            r.ID,
			Name:          r.Name,
			FeedURL:       r.FeedURL,
			Kind:          model.SourceKind(r.Kind),
			Academic:      r.Academic,
			LastScrapedAt: r.LastScrapedAt.Time,
			CreatedAt:     r.CreatedAt,
		}
	}), nil
}

// UpdateSourceScraped records a successful poll cycle: the new baseline
// timestamp and the feed link the cycle actually used.
func (s *Storage) UpdateSourceScraped(ctx context.Context, id int64, feedURL string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_scraped_at = $1, feed_url = $2 WHERE id = $3`,
		at.UTC(), feedURL, id,
	)
	if err != nil {
		return fmt.Errorf("update source %d: %w", id, err)
	}
	return nil
}

// StoreArticle inserts one article. ON CONFLICT DO NOTHING absorbs the
// same-cycle cross-source race on identical links; the row that got there
// first wins and the second insert is a silent no-op.
func (s *Storage) StoreArticle(ctx context.Context, a model.Article) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles
			(link, title, source, source_type, published_at, scraped_at, tags, keywords, summary, content)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''))
		 ON CONFLICT (link) DO NOTHING`,
		a.Link, a.Title, a.Source, a.SourceType, a.PublishedAt.UTC(), a.ScrapedAt.UTC(),
		pq.StringArray(a.Tags), pq.StringArray(a.Keywords), a.Summary, a.Content,
	)
	if err != nil {
		return fmt.Errorf("insert article %s: %w", a.Link, err)
	}
	return nil
}

// ExistingLinks returns the subset of links already present in the article
// store. Callers batch their input; a single call issues one IN query.
func (s *Storage) ExistingLinks(ctx context.Context, links []string) ([]string, error) {
	if len(links) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT link FROM articles WHERE link IN (?)`, links)
	if err != nil {
		return nil, fmt.Errorf("build links query: %w", err)
	}

	var existing []string
	if err := s.db.SelectContext(ctx, &existing, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select links: %w", err)
	}
	return existing, nil
}

// ArticlesMissingSummary lists recently ingested articles the enrichment
// worker still has to fill in.
func (s *Storage) ArticlesMissingSummary(ctx context.Context, limit int) ([]model.Article, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []dbArticle
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM articles
		 WHERE summary IS NULL OR summary = ''
		 ORDER BY scraped_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unenriched: %w", err)
	}

	return lo.Map(rows, func(r dbArticle, _ int) model.Article { return r.toModel() }), nil
}

// UpdateEnrichment backfills the AI-generated fields. The only mutation of
// an article after its initial insert.
func (s *Storage) UpdateEnrichment(ctx context.Context, id int64, titleTranslated, summary, summaryTranslated string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE articles
		 SET title_translated = NULLIF($1, ''), summary = NULLIF($2, ''), summary_translated = NULLIF($3, '')
		 WHERE id = $4`,
		titleTranslated, summary, summaryTranslated, id,
	)
	if err != nil {
		return fmt.Errorf("update enrichment %d: %w", id, err)
	}
	return nil
}

// InsertSource adds one configured source; used by the YAML seed.
func (s *Storage) InsertSource(ctx context.Context, src model.Source) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, feed_url, kind, academic) VALUES ($1, $2, $3, $4)`,
		src.Name, src.FeedURL, string(src.Kind), src.Academic,
	)
	if err != nil {
		return fmt.Errorf("insert source %s: %w", src.Name, err)
	}
	return nil
}
