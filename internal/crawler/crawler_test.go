package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cartscout/internal/config"
	"cartscout/internal/fetcher"
	"cartscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const searchPage = `<html><body>
<div data-component-type="s-search-result">
  <h2><a href="/dp/B08N5WRWNW"><span>Espresso Machine Deluxe</span></a></h2>
  <span class="a-price-whole">129</span>
  <span class="a-icon-alt">4.5 out of 5 stars</span>
  <span class="a-size-base">1,234</span>
</div>
<div data-component-type="s-search-result">
  <h2><a href="/dp/B000000002"><span>Budget Grinder</span></a></h2>
  <span class="a-price-whole">19</span>
  <span class="a-icon-alt">3.0 out of 5 stars</span>
  <span class="a-size-base">56</span>
</div>
<div data-component-type="s-search-result">
  <h2><a href="/dp/B000000003"><span>Premium Kettle</span></a></h2>
  <span class="a-price-whole">49</span>
  <span class="a-icon-alt">5.0 out of 5 stars</span>
  <span class="a-size-base">890</span>
</div>
</body></html>`

const reviewsPage = `<html><body>
<div data-hook="review">
  <span class="a-profile-name">Alice</span>
  <i data-hook="review-star-rating"><span class="a-icon-alt">5.0 out of 5 stars</span></i>
  <a data-hook="review-title"><span>Great crema</span></a>
  <span data-hook="review-body"><span>Pulls a perfect shot every morning.</span></span>
  <span data-hook="review-date">Reviewed in the United States on March 3, 2024</span>
</div>
<div data-hook="review">
  <span class="a-profile-name">Bob</span>
  <i data-hook="review-star-rating"><span class="a-icon-alt">4.0 out of 5 stars</span></i>
  <a data-hook="review-title"><span>Solid machine</span></a>
  <span data-hook="review-body"><span>Heats up fast, a little loud.</span></span>
  <span data-hook="review-date">Reviewed in the United States on April 9, 2024</span>
</div>
</body></html>`

const emptyPage = `<html><body><p>No more reviews.</p></body></html>`

// siteServer fakes the target site: robots policy, search results, a
// liveness-probe root, and one paginated review set.
func siteServer(t *testing.T, robotsBody string, searchFetches, reviewFetches *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/robots.txt":
			io.WriteString(w, robotsBody)
		case r.URL.Path == "/s":
			searchFetches.Add(1)
			io.WriteString(w, searchPage)
		case strings.HasPrefix(r.URL.Path, "/product-reviews/"):
			reviewFetches.Add(1)
			if r.URL.Query().Get("pageNumber") == "" {
				io.WriteString(w, reviewsPage)
			} else {
				io.WriteString(w, emptyPage)
			}
		default:
			io.WriteString(w, "<html><body>home</body></html>")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = baseURL
	cfg.Crawler.Delay = 0
	cfg.Crawler.PageDelay = 0
	cfg.Crawler.RetryDelay = 10 * time.Millisecond
	cfg.Crawler.RequestsPerMinute = 60000
	cfg.Auth.CookiesFile = filepath.Join(t.TempDir(), "cookies.json")
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

// seedCookies writes a persisted session so the liveness check can pass.
func seedCookies(t *testing.T, cfg *config.Config) {
	t.Helper()
	s, err := fetcher.NewSession(cfg.Auth.CookiesFile, cfg.Site.BaseURL, testLogger)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	err = s.SaveCookies([]*http.Cookie{{Name: "session-token", Value: "abc", Path: "/"}})
	if err != nil {
		t.Fatalf("SaveCookies: %v", err)
	}
}

func TestCrawlFullPipeline(t *testing.T) {
	var searchFetches, reviewFetches atomic.Int32
	srv := siteServer(t, "User-agent: *\nAllow: /\n", &searchFetches, &reviewFetches)

	cfg := testConfig(t, srv.URL)
	seedCookies(t, cfg)

	c, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	listings, err := c.Crawl(context.Background(), types.SearchRequest{
		Keyword:        "espresso machine",
		MinRating:      4.0,
		MaxResults:     2,
		CrawlReviews:   true,
		MaxReviewPages: 2,
	})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	// two listings extracted, the 3.0-star one filtered out
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing after filter, got %d", len(listings))
	}
	l := listings[0]
	if l.Title != "Espresso Machine Deluxe" {
		t.Errorf("title = %q", l.Title)
	}
	if l.Rating != 4.5 {
		t.Errorf("rating = %v", l.Rating)
	}
	if l.ReviewsCount != 1234 {
		t.Errorf("reviews count = %d", l.ReviewsCount)
	}
	if !strings.Contains(l.URL, "/dp/B08N5WRWNW") {
		t.Errorf("url = %q", l.URL)
	}

	if len(l.Reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(l.Reviews))
	}
	if l.Reviews[0].ReviewerName != "Alice" || l.Reviews[0].Rating != 5.0 {
		t.Errorf("first review = %+v", l.Reviews[0])
	}

	if got := searchFetches.Load(); got != 1 {
		t.Errorf("search fetched %d times, want 1", got)
	}
	// page 1 with reviews, page 2 empty stops pagination
	if got := reviewFetches.Load(); got != 2 {
		t.Errorf("review pages fetched %d times, want 2", got)
	}
}

func TestCrawlRobotsDisallowed(t *testing.T) {
	var searchFetches, reviewFetches atomic.Int32
	srv := siteServer(t, "User-agent: *\nDisallow: /s\n", &searchFetches, &reviewFetches)

	cfg := testConfig(t, srv.URL)
	c, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	listings, err := c.Crawl(context.Background(), types.SearchRequest{
		Keyword:    "espresso machine",
		MaxResults: 2,
	})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("expected no listings, got %d", len(listings))
	}
	if got := searchFetches.Load(); got != 0 {
		t.Errorf("search fetched %d times despite robots disallow", got)
	}
}

func TestCrawlSkipsReviewsWhenUnauthenticated(t *testing.T) {
	var searchFetches, reviewFetches atomic.Int32
	srv := siteServer(t, "User-agent: *\nAllow: /\n", &searchFetches, &reviewFetches)

	// no seeded cookie file: the liveness check fails closed
	cfg := testConfig(t, srv.URL)
	c, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	listings, err := c.Crawl(context.Background(), types.SearchRequest{
		Keyword:        "espresso machine",
		MinRating:      4.0,
		MaxResults:     3,
		CrawlReviews:   true,
		MaxReviewPages: 2,
	})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	for _, l := range listings {
		if len(l.Reviews) != 0 {
			t.Errorf("listing %q has reviews despite failed authentication", l.Title)
		}
	}
	if got := reviewFetches.Load(); got != 0 {
		t.Errorf("review pages fetched %d times, want 0", got)
	}
}

func TestCrawlInvalidRequest(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	c, err := New(cfg, testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Crawl(context.Background(), types.SearchRequest{}); err == nil {
		t.Error("expected validation error for empty keyword")
	}
}
