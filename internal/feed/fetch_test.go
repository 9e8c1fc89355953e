package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cryptonews/internal/model"
	"cryptonews/internal/retry"
)

func TestFetch_RateLimitedIsNotRetried(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(time.Second, retry.Config{MaxAttempts: 3, Delay: time.Millisecond}, 5)
	_, err := c.Fetch(context.Background(), model.Source{Name: "limited", FeedURL: srv.URL})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("upstream saw %d requests, want 1", n)
	}
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(rssDoc))
	}))
	defer srv.Close()

	c := NewClient(time.Second, retry.Config{MaxAttempts: 3, Delay: time.Millisecond}, 5)
	items, err := c.Fetch(context.Background(), model.Source{Name: "flaky", FeedURL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("got %d items, want 1", len(items))
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("upstream saw %d requests, want 3", n)
	}
}
