package ingest

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"cryptonews/internal/model"
)

// ArticleStore is the slice of the article store the pipeline needs.
type ArticleStore interface {
	ExistingLinks(ctx context.Context, links []string) ([]string, error)
	StoreArticle(ctx context.Context, a model.Article) error
}

// Gate excludes already-ingested links. Candidates are queried in
// fixed-size batches to stay under the store's IN-clause limit; any batch
// failure fails the whole source closed for this cycle rather than risking
// duplicate inserts from an incomplete exclusion set.
type Gate struct {
	store     ArticleStore
	batchSize int
}

func NewGate(store ArticleStore, batchSize int) *Gate {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Gate{store: store, batchSize: batchSize}
}

// FilterNew returns the candidates not present in the article store.
// Duplicate candidates collapse to one; output keeps candidate order.
func (g *Gate) FilterNew(ctx context.Context, links []string) ([]string, error) {
	links = lo.Uniq(links)

	existing := make(map[string]struct{})
	for _, batch := range lo.Chunk(links, g.batchSize) {
		found, err := g.store.ExistingLinks(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("dedup batch: %w", err)
		}
		for _, link := range found {
			existing[link] = struct{}{}
		}
	}

	return lo.Filter(links, func(link string, _ int) bool {
		_, seen := existing[link]
		return !seen
	}), nil
}
