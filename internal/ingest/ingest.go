// Package ingest drives the per-source pipeline: fetch, normalize, dedupe,
// scrape, tag, persist. Failures are recovered at the narrowest scope —
// item, then source, then run — so unrelated work keeps moving.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"cryptonews/internal/feed"
	"cryptonews/internal/logger"
	"cryptonews/internal/metrics"
	"cryptonews/internal/model"
	"cryptonews/internal/tags"
)

// SourceStore reads the configured sources and records poll progress.
type SourceStore interface {
	Sources(ctx context.Context) ([]model.Source, error)
	UpdateSourceScraped(ctx context.Context, id int64, feedURL string, at time.Time) error
}

// Fetcher returns a source's normalized items.
type Fetcher interface {
	Fetch(ctx context.Context, src model.Source) ([]model.Item, error)
}

// ContentExtractor returns best-effort article body text, "" on any failure.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) string
}

// Notifier delivers a digest of newly ingested articles.
type Notifier interface {
	SendDigest(articles []model.Article) error
}

type Orchestrator struct {
	sources  SourceStore
	articles ArticleStore
	gate     *Gate
	fetcher  Fetcher
	scraper  ContentExtractor
	notifier Notifier // optional
}

func New(sources SourceStore, articles ArticleStore, gate *Gate, fetcher Fetcher, scraper ContentExtractor, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		sources:  sources,
		articles: articles,
		gate:     gate,
		fetcher:  fetcher,
		scraper:  scraper,
		notifier: notifier,
	}
}

// Run executes one ingestion cycle. Only a source-load failure is fatal to
// the cycle; each source below that runs concurrently and fails alone.
func (o *Orchestrator) Run(ctx context.Context) error {
	runID := uuid.NewString()[:8]
	start := time.Now()

	srcs, err := o.sources.Sources(ctx)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("load sources: %w", err)
	}

	polled := lo.Filter(srcs, func(s model.Source, _ int) bool {
		// Push channels arrive via webhook; the scheduler never polls them.
		return s.Kind != model.SourceKindPush
	})
	logger.Info("ingestion cycle started", "run", runID, "sources", len(polled))

	var (
		mu       sync.Mutex
		ingested []model.Article
		wg       sync.WaitGroup
	)

	for _, src := range polled {
		wg.Add(1)
		go func(src model.Source) {
			defer wg.Done()

			stored, err := o.ingestSource(ctx, src)
			if err != nil {
				logger.Error("source skipped this cycle", "run", runID, "source", src.Name, "err", err)
				metrics.Global.IncrementSourcesFailed()
				return
			}

			mu.Lock()
			ingested = append(ingested, stored...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	metrics.Global.AddSourcesPolled(int64(len(polled)))
	metrics.Global.RecordCycleTime(time.Since(start))
	metrics.Global.SetLastRun()
	logger.Info("ingestion cycle finished", "run", runID, "ingested", len(ingested), "took", time.Since(start))

	if o.notifier != nil && len(ingested) > 0 {
		if err := o.notifier.SendDigest(ingested); err != nil {
			logger.Error("digest delivery failed", "run", runID, "err", err)
		}
	}
	return nil
}

// ingestSource runs the strictly sequential per-source pipeline. Fetch,
// normalize and dedupe failures skip the whole source (lastScrapedAt stays
// put so the next cycle retries from the same baseline); item failures are
// isolated per item.
func (o *Orchestrator) ingestSource(ctx context.Context, src model.Source) ([]model.Article, error) {
	items, err := o.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	metrics.Global.AddItemsSeen(int64(len(items)))

	links := lo.Map(items, func(it model.Item, _ int) string { return it.Link })
	fresh, err := o.gate.FilterNew(ctx, links)
	if err != nil {
		// Fail closed: with an incomplete exclusion set, persisting anything
		// risks duplicates.
		return nil, err
	}
	metrics.Global.AddDuplicatesSkipped(int64(len(lo.Uniq(links)) - len(fresh)))

	byLink := make(map[string]model.Item, len(items))
	for _, it := range items {
		if _, ok := byLink[it.Link]; !ok {
			byLink[it.Link] = it
		}
	}

	var stored []model.Article
	for _, link := range fresh {
		article, err := o.ingestItem(ctx, src, byLink[link], model.SourceTypeRSS)
		if err != nil {
			logger.Error("item skipped", "source", src.Name, "link", link, "err", err)
			continue
		}
		stored = append(stored, article)
		metrics.Global.IncrementArticlesIngested()
	}

	if err := o.sources.UpdateSourceScraped(ctx, src.ID, src.FeedURL, time.Now()); err != nil {
		logger.Warn("failed to advance source baseline", "source", src.Name, "err", err)
	}
	return stored, nil
}

// ingestItem scrapes, tags and persists one new item.
func (o *Orchestrator) ingestItem(ctx context.Context, src model.Source, it model.Item, sourceType string) (model.Article, error) {
	content := o.scraper.Extract(ctx, it.Link)

	text := it.Title
	if it.Summary != "" {
		text += " " + it.Summary
	}

	article := model.Article{
		Link:        it.Link,
		Title:       it.Title,
		Source:      src.Name,
		SourceType:  sourceType,
		PublishedAt: it.PublishedAt,
		ScrapedAt:   time.Now(),
		Tags:        tags.Extract(text),
		Keywords:    tags.Keywords(text),
		Summary:     it.Summary,
		Content:     content,
	}

	if err := o.articles.StoreArticle(ctx, article); err != nil {
		return model.Article{}, err
	}
	return article, nil
}

// IngestPush persists one inbound push-channel item. At webhook scale there
// is no candidate set to diff, so it bypasses the batched gate and relies
// on the store's unique link constraint alone.
func (o *Orchestrator) IngestPush(ctx context.Context, channel string, payload map[string]any) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "webhook"
	}

	it := feed.NormalizePush(payload, channel, time.Now())

	src := model.Source{Name: channel}
	if _, err := o.ingestItem(ctx, src, it, model.SourceTypeWebsocket); err != nil {
		return err
	}

	metrics.Global.IncrementPushAccepted()
	logger.Info("push item ingested", "channel", channel, "link", it.Link)
	return nil
}
