package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"cartscout/internal/config"
	"cartscout/internal/fetcher"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestExtractASIN(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.amazon.com/dp/B08N5WRWNW/ref=sr_1_1", "B08N5WRWNW", true},
		{"https://www.amazon.com/sspa/click?url=%2Fdp%2FB07XJ8C8F5%2Fref", "B07XJ8C8F5", true},
		{"https://www.amazon.com/product/B09G9FPHY6", "B09G9FPHY6", true},
		{"https://www.amazon.com/gp/help/customer", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractASIN(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractASIN(%q) = (%q, %t), want (%q, %t)", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPageURL(t *testing.T) {
	base := "https://www.amazon.com/product-reviews/B08N5WRWNW/ref=x?ie=UTF8"

	if got := pageURL(base, 1); got != base {
		t.Errorf("page 1 must not carry a page number: %q", got)
	}
	if got := pageURL(base, 2); got != base+"&pageNumber=2" {
		t.Errorf("page 2 = %q", got)
	}
	if got := pageURL("https://example.com/reviews", 3); got != "https://example.com/reviews?pageNumber=3" {
		t.Errorf("page 3 without query = %q", got)
	}
}

const reviewPageHTML = `<html><body>
<div data-hook="review">
	<span class="a-profile-name">Reviewer %d</span>
	<i data-hook="review-star-rating"><span class="a-icon-alt">4.0 out of 5 stars</span></i>
	<span data-hook="review-body"><span>Review body %d</span></span>
</div>
<div data-hook="review">
	<span class="a-profile-name">Reviewer %d</span>
	<i data-hook="review-star-rating"><span class="a-icon-alt">5.0 out of 5 stars</span></i>
	<span data-hook="review-body"><span>Another body %d</span></span>
</div>
</body></html>`

const emptyPageHTML = `<html><body><p>no more reviews</p></body></html>`

// reviewServer serves review pages 1..pagesWithContent with two reviews
// each and empty pages after, counting fetches.
func reviewServer(t *testing.T, pagesWithContent int, fetches *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/product-reviews/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(fetches, 1)
		page := 1
		if p := r.URL.Query().Get("pageNumber"); p != "" {
			fmt.Sscanf(p, "%d", &page)
		}
		if page > pagesWithContent {
			fmt.Fprint(w, emptyPageHTML)
			return
		}
		fmt.Fprintf(w, reviewPageHTML, page, page, page, page)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestPaginator(t *testing.T, baseURL string) *Paginator {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = baseURL
	cfg.Crawler.RetryDelay = 10 * time.Millisecond
	cfg.Crawler.RequestsPerMinute = 60000

	session, err := fetcher.NewSession(filepath.Join(t.TempDir(), "cookies.json"), baseURL, testLogger)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	client := fetcher.NewClient(cfg, session, testLogger)
	return NewPaginator(client, baseURL, 0, testLogger)
}

func TestCrawlStopsOnEmptyPage(t *testing.T) {
	var fetches int32
	srv := reviewServer(t, 1, &fetches)
	p := newTestPaginator(t, srv.URL)

	reviews := p.Crawl(context.Background(), srv.URL+"/dp/B08N5WRWNW/ref=sr_1_1", 5, 10)

	if len(reviews) != 2 {
		t.Errorf("expected 2 reviews from page 1, got %d", len(reviews))
	}
	// page 1 had content, page 2 was empty: exactly 2 fetches, not 5
	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Errorf("expected 2 page fetches, got %d", got)
	}
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	var fetches int32
	srv := reviewServer(t, 10, &fetches)
	p := newTestPaginator(t, srv.URL)

	reviews := p.Crawl(context.Background(), srv.URL+"/dp/B08N5WRWNW", 3, 10)

	if got := atomic.LoadInt32(&fetches); got != 3 {
		t.Errorf("expected exactly 3 page fetches, got %d", got)
	}
	if len(reviews) != 6 {
		t.Errorf("expected 6 reviews across 3 pages, got %d", len(reviews))
	}
}

func TestCrawlTruncatesPerPage(t *testing.T) {
	var fetches int32
	srv := reviewServer(t, 1, &fetches)
	p := newTestPaginator(t, srv.URL)

	reviews := p.Crawl(context.Background(), srv.URL+"/dp/B08N5WRWNW", 2, 1)
	if len(reviews) != 1 {
		t.Errorf("expected 1 review after per-page truncation, got %d", len(reviews))
	}
}

func TestCrawlNoIdentifier(t *testing.T) {
	var fetches int32
	srv := reviewServer(t, 1, &fetches)
	p := newTestPaginator(t, srv.URL)

	reviews := p.Crawl(context.Background(), srv.URL+"/gp/help/customer", 5, 10)

	if len(reviews) != 0 {
		t.Errorf("expected no reviews, got %d", len(reviews))
	}
	if got := atomic.LoadInt32(&fetches); got != 0 {
		t.Errorf("expected zero page fetches, got %d", got)
	}
}

func TestCrawlRetriesTransientFailure(t *testing.T) {
	var fetches, page2Failures int32
	mux := http.NewServeMux()
	mux.HandleFunc("/product-reviews/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		switch r.URL.Query().Get("pageNumber") {
		case "2":
			// one 503 then content: a transient blip, not a dead page
			if atomic.AddInt32(&page2Failures, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprintf(w, reviewPageHTML, 2, 2, 2, 2)
		case "":
			fmt.Fprintf(w, reviewPageHTML, 1, 1, 1, 1)
		default:
			fmt.Fprint(w, emptyPageHTML)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := newTestPaginator(t, srv.URL)
	reviews := p.Crawl(context.Background(), srv.URL+"/dp/B08N5WRWNW", 5, 10)

	if len(reviews) != 4 {
		t.Errorf("expected 4 reviews after retrying the transient failure, got %d", len(reviews))
	}
	// page 1, page 2 (503), page 2 retry, page 3 (empty)
	if got := atomic.LoadInt32(&fetches); got != 4 {
		t.Errorf("expected 4 page fetches, got %d", got)
	}
}

func TestCrawlPartialOnError(t *testing.T) {
	var fetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/product-reviews/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		if r.URL.Query().Get("pageNumber") == "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, reviewPageHTML, 1, 1, 1, 1)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := newTestPaginator(t, srv.URL)
	reviews := p.Crawl(context.Background(), srv.URL+"/dp/B08N5WRWNW", 5, 10)

	// page 1 succeeded, page 2 failed: keep page 1's reviews
	if len(reviews) != 2 {
		t.Errorf("expected 2 reviews kept after failure, got %d", len(reviews))
	}
}
