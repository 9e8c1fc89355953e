package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract_SelectorMatch(t *testing.T) {
	page := `<html><body>
		<nav>site nav</nav>
		<div class="article-content">
			<p>Bitcoin   rallied
			sharply.</p>
			<p>Analysts   disagree.</p>
		</div>
	</body></html>`
	srv := serve(t, http.StatusOK, page)

	got := New(time.Second).Extract(context.Background(), srv.URL)
	want := "Bitcoin rallied sharply. Analysts disagree."
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestExtract_SelectorPriority(t *testing.T) {
	// <article> outranks .post-content in the priority list.
	page := `<html><body>
		<article>from article tag</article>
		<div class="post-content">from post content</div>
	</body></html>`
	srv := serve(t, http.StatusOK, page)

	got := New(time.Second).Extract(context.Background(), srv.URL)
	if got != "from article tag" {
		t.Errorf("Extract = %q, want the article element's text", got)
	}
}

func TestExtract_HTTPErrorReturnsEmpty(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "gone")

	if got := New(time.Second).Extract(context.Background(), srv.URL); got != "" {
		t.Errorf("Extract on 404 = %q, want empty", got)
	}
}

func TestExtract_UnreachableHostReturnsEmpty(t *testing.T) {
	srv := serve(t, http.StatusOK, "")
	srv.Close() // connection refused from here on

	if got := New(time.Second).Extract(context.Background(), srv.URL); got != "" {
		t.Errorf("Extract on refused connection = %q, want empty", got)
	}
}

func TestExtract_NoMatchingStructure(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html><head><title>t</title></head><body></body></html>`)

	if got := New(time.Second).Extract(context.Background(), srv.URL); got != "" {
		t.Errorf("Extract on empty page = %q, want empty", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := collapseWhitespace("  a\n\tb   c  ")
	if got != "a b c" {
		t.Errorf("collapseWhitespace = %q", got)
	}
}

func TestExtract_PageOverByteCapReturnsEmpty(t *testing.T) {
	big := `<html><body><article>hello</article>` + strings.Repeat("x", 6<<20) + `</body></html>`
	srv := serve(t, http.StatusOK, big)

	if got := New(5 * time.Second).Extract(context.Background(), srv.URL); got != "" {
		t.Errorf("Extract on oversized page = %q, want empty", got)
	}
}
