package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pushCall struct {
	channel string
	payload map[string]any
}

type recordingIngestor struct {
	calls chan pushCall
}

func newRecordingIngestor() *recordingIngestor {
	return &recordingIngestor{calls: make(chan pushCall, 1)}
}

func (r *recordingIngestor) IngestPush(_ context.Context, channel string, payload map[string]any) error {
	r.calls <- pushCall{channel: channel, payload: payload}
	return nil
}

type recordingEnricher struct {
	calls chan struct{}
	err   error
}

func (r *recordingEnricher) Run(context.Context) error {
	r.calls <- struct{}{}
	return r.err
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_AcceptsObjectAndIngestsAsync(t *testing.T) {
	ing := newRecordingIngestor()
	router := NewRouter(ing, nil)

	w := doRequest(router, http.MethodPost, "/webhook", `{"channel":"alerts","title":"Breaking","url":"https://p/1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["status"] != "received" {
		t.Errorf("status field = %v, want received", resp["status"])
	}
	if _, err := time.Parse(time.RFC3339, resp["received"].(string)); err != nil {
		t.Errorf("received field is not RFC3339: %v", err)
	}

	select {
	case call := <-ing.calls:
		if call.channel != "alerts" {
			t.Errorf("channel = %q, want alerts", call.channel)
		}
		if call.payload["title"] != "Breaking" {
			t.Errorf("payload title = %v", call.payload["title"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ingestor was never called")
	}
}

func TestWebhook_RejectsMalformedJSON(t *testing.T) {
	ing := newRecordingIngestor()
	router := NewRouter(ing, nil)

	w := doRequest(router, http.MethodPost, "/webhook", `{"broken`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	select {
	case <-ing.calls:
		t.Error("ingestor must not run for a rejected payload")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebhook_RejectsNonObjectBody(t *testing.T) {
	router := NewRouter(newRecordingIngestor(), nil)

	for _, body := range []string{`[1,2,3]`, `"just a string"`, `42`, `null`} {
		if w := doRequest(router, http.MethodPost, "/webhook", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestProcess_TriggersEnrichment(t *testing.T) {
	enr := &recordingEnricher{calls: make(chan struct{}, 1)}
	router := NewRouter(newRecordingIngestor(), enr)

	w := doRequest(router, http.MethodPost, "/process", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	select {
	case <-enr.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("enricher was never called")
	}
}

func TestProcess_UnavailableWithoutEnricher(t *testing.T) {
	router := NewRouter(newRecordingIngestor(), nil)

	if w := doRequest(router, http.MethodPost, "/process", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestProcess_EnricherErrorStillAcknowledged(t *testing.T) {
	enr := &recordingEnricher{calls: make(chan struct{}, 1), err: errors.New("model quota exhausted")}
	router := NewRouter(newRecordingIngestor(), enr)

	if w := doRequest(router, http.MethodPost, "/process", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even when the batch later fails", w.Code)
	}
	<-enr.calls
}

func TestHealthz(t *testing.T) {
	router := NewRouter(newRecordingIngestor(), nil)

	w := doRequest(router, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK && w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if _, ok := resp["status"]; !ok {
		t.Error("health response missing status")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(newRecordingIngestor(), nil)

	w := doRequest(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var stats map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("metrics response is not JSON: %v", err)
	}
	for _, key := range []string{"articles_ingested", "duplicates_skipped", "sources_polled"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("metrics missing %q", key)
		}
	}
}
