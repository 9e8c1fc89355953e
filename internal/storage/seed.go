package storage

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cryptonews/internal/logger"
	"cryptonews/internal/model"
)

// feedsConfig is the YAML shape of configs/feeds.yaml:
//
//	sources:
//	  - name: CoinDesk
//	    url: https://...
//	    kind: rss
//	    academic: false
type feedsConfig struct {
	Sources []struct {
		Name     string `yaml:"name"`
		URL      string `yaml:"url"`
		Kind     string `yaml:"kind"`
		Academic bool   `yaml:"academic"`
	} `yaml:"sources"`
}

// SeedSources loads the YAML source list into an empty sources table. A
// populated table is left alone; the admin surface owns it from then on.
func (s *Storage) SeedSources(ctx context.Context, path string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sources`); err != nil {
		return fmt.Errorf("count sources: %w", err)
	}
	if n > 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg feedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return fmt.Errorf("decode feeds config: %w", err)
	}

	seeded := 0
	for _, src := range cfg.Sources {
		kind := model.SourceKind(src.Kind)
		if kind == "" {
			kind = model.SourceKindRSS
		}
		err := s.InsertSource(ctx, model.Source{
			Name:     src.Name,
			FeedURL:  src.URL,
			Kind:     kind,
			Academic: src.Academic,
		})
		if err != nil {
			return err
		}
		seeded++
	}

	logger.Info("seeded sources from config", "count", seeded, "path", path)
	return nil
}
