package metrics

import (
	"sync"
	"time"
)

// Metrics is a process-local registry of ingestion counters, served by the
// monitoring endpoints.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	SourcesPolled     int64
	SourcesFailed     int64
	ItemsSeen         int64
	ArticlesIngested  int64
	DuplicatesSkipped int64
	ScrapeFailures    int64
	PushAccepted      int64
	EnrichmentsDone   int64
	EnrichmentsFailed int64
	DigestsSent       int64

	// Timings
	LastCycleTime    time.Duration
	TotalCycleTime   time.Duration
	AverageCycleTime time.Duration
	CycleCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddSourcesPolled(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesPolled += n
}

func (m *Metrics) IncrementSourcesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFailed++
}

func (m *Metrics) AddItemsSeen(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ItemsSeen += n
}

func (m *Metrics) IncrementArticlesIngested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesIngested++
}

func (m *Metrics) AddDuplicatesSkipped(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped += n
}

func (m *Metrics) IncrementScrapeFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScrapeFailures++
}

func (m *Metrics) IncrementPushAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PushAccepted++
}

func (m *Metrics) IncrementEnrichmentsDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsDone++
}

func (m *Metrics) IncrementEnrichmentsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsFailed++
}

func (m *Metrics) IncrementDigestsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DigestsSent++
}

func (m *Metrics) RecordCycleTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCycleTime = d
	m.TotalCycleTime += d
	m.CycleCount++
	m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CycleCount)
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"sources_polled":        m.SourcesPolled,
		"sources_failed":        m.SourcesFailed,
		"items_seen":            m.ItemsSeen,
		"articles_ingested":     m.ArticlesIngested,
		"duplicates_skipped":    m.DuplicatesSkipped,
		"scrape_failures":       m.ScrapeFailures,
		"push_accepted":         m.PushAccepted,
		"enrichments_done":      m.EnrichmentsDone,
		"enrichments_failed":    m.EnrichmentsFailed,
		"digests_sent":          m.DigestsSent,
		"last_cycle_time_ms":    m.LastCycleTime.Milliseconds(),
		"average_cycle_time_ms": m.AverageCycleTime.Milliseconds(),
		"last_run_time":         m.LastRunTime.Format(time.RFC3339),
		"last_error_time":       m.LastErrorTime.Format(time.RFC3339),
		"last_error":            m.LastError,
		"is_healthy":            m.IsHealthy,
	}
}
