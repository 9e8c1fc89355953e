// Package api exposes the HTTP surface: the push-channel webhook, the
// manual enrichment trigger and the monitoring endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cryptonews/internal/logger"
	"cryptonews/internal/metrics"
)

// Ingestor accepts one push-channel payload.
type Ingestor interface {
	IngestPush(ctx context.Context, channel string, payload map[string]any) error
}

// Enricher runs one enrichment batch.
type Enricher interface {
	Run(ctx context.Context) error
}

const pushTimeout = 2 * time.Minute

// NewRouter constructs the Gin engine with all routes registered. enricher
// may be nil when no AI key is configured; /process then reports 503.
func NewRouter(ingestor Ingestor, enricher Enricher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/webhook", handleWebhook(ingestor))
	r.POST("/process", handleProcess(enricher))
	r.GET("/healthz", handleHealth)
	r.GET("/metrics", handleMetrics)
	return r
}

// handleWebhook validates the payload, acknowledges with 202 and persists
// asynchronously so caller latency is decoupled from pipeline latency.
func handleWebhook(ingestor Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A JSON null binds to a nil map without an error; only an actual
		// object passes.
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
			return
		}

		channel, _ := payload["channel"].(string)

		c.JSON(http.StatusAccepted, gin.H{
			"status":   "received",
			"received": time.Now().UTC().Format(time.RFC3339),
		})

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()

			if err := ingestor.IngestPush(ctx, channel, payload); err != nil {
				logger.Error("push ingestion failed", "channel", channel, "err", err)
			}
		}()
	}
}

// handleProcess kicks an enrichment batch and returns immediately.
func handleProcess(enricher Enricher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enricher == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrichment is not configured"})
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if err := enricher.Run(ctx); err != nil {
				logger.Error("enrichment batch failed", "err", err)
			}
		}()

		c.JSON(http.StatusOK, gin.H{"status": "processing"})
	}
}

func handleHealth(c *gin.Context) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Global.GetStats())
}
