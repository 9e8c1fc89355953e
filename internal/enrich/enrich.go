// Package enrich backfills AI-generated summaries and title translations
// for ingested articles. It runs after ingestion, never during it, and is
// the only writer of an article after its initial insert.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"cryptonews/internal/logger"
	"cryptonews/internal/metrics"
	"cryptonews/internal/model"
)

const (
	geminiModel     = "gemini-1.5-flash"
	maxPromptRunes  = 6000
	minSentenceTail = 1200
)

// Store is the slice of the article store the enricher needs.
type Store interface {
	ArticlesMissingSummary(ctx context.Context, limit int) ([]model.Article, error)
	UpdateEnrichment(ctx context.Context, id int64, titleTranslated, summary, summaryTranslated string) error
}

// Result is one parsed model response.
type Result struct {
	TitleTranslated   string
	Summary           string
	SummaryTranslated string
}

type Enricher struct {
	client     *genai.Client
	store      Store
	limiter    *Limiter
	batchLimit int
}

func New(ctx context.Context, apiKey string, store Store, batchLimit, maxRequests int) (*Enricher, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Enricher{
		client:     client,
		store:      store,
		limiter:    NewLimiter(maxRequests),
		batchLimit: batchLimit,
	}, nil
}

func (e *Enricher) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// Run processes one enrichment batch. Per-article failures are logged and
// skipped; the article stays unenriched and is picked up again next batch.
func (e *Enricher) Run(ctx context.Context) error {
	articles, err := e.store.ArticlesMissingSummary(ctx, e.batchLimit)
	if err != nil {
		return fmt.Errorf("list unenriched: %w", err)
	}
	logger.Info("enrichment batch started", "articles", len(articles))

	for _, a := range articles {
		if !e.limiter.Allow() {
			logger.Warn("AI request budget exhausted, stopping batch", "used", e.limiter.Used())
			break
		}

		body := a.Content
		if body == "" {
			body = a.Summary
		}
		if body == "" {
			body = a.Title
		}

		res, err := e.Summarize(ctx, a.Title, body)
		if err != nil {
			logger.Error("enrichment failed", "link", a.Link, "err", err)
			metrics.Global.IncrementEnrichmentsFailed()
			continue
		}

		if err := e.store.UpdateEnrichment(ctx, a.ID, res.TitleTranslated, res.Summary, res.SummaryTranslated); err != nil {
			logger.Error("enrichment persist failed", "link", a.Link, "err", err)
			metrics.Global.IncrementEnrichmentsFailed()
			continue
		}
		metrics.Global.IncrementEnrichmentsDone()
	}
	return nil
}

// Summarize asks the model for a short summary and English renditions of
// title and summary, in a line-prefixed format the parser can recover even
// from slightly mangled responses.
func (e *Enricher) Summarize(ctx context.Context, title, content string) (*Result, error) {
	content = truncateContent(content)

	prompt := fmt.Sprintf(`You are summarizing a crypto/AI news article for an aggregation feed.

ARTICLE TITLE: %s
ARTICLE TEXT: %s

Reply with exactly three lines, no extra commentary:
TITLE_EN: <the title translated to English, or unchanged if already English>
SUMMARY: <2-3 sentence summary in the article's original language>
SUMMARY_EN: <the same summary in English>

Do not translate proper names of brands, protocols or tokens.`, title, content)

	gm := e.client.GenerativeModel(geminiModel)
	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}
	return parseResult(text), nil
}

// truncateContent collapses whitespace and cuts over-long bodies on a rune
// boundary, preferring a sentence end.
func truncateContent(content string) string {
	content = strings.Join(strings.Fields(strings.ReplaceAll(content, "\r", "")), " ")
	if utf8.RuneCountInString(content) <= maxPromptRunes {
		return content
	}

	runes := []rune(content)
	trimmed := string(runes[:maxPromptRunes])
	if idx := strings.LastIndex(trimmed, ". "); idx > minSentenceTail {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func parseResult(text string) *Result {
	res := &Result{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TITLE_EN:"):
			res.TitleTranslated = strings.TrimSpace(strings.TrimPrefix(line, "TITLE_EN:"))
		case strings.HasPrefix(line, "SUMMARY_EN:"):
			res.SummaryTranslated = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY_EN:"))
		case strings.HasPrefix(line, "SUMMARY:"):
			res.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		}
	}
	return res
}
