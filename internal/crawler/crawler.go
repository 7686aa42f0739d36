// Package crawler wires the pipeline together: robots gate, search fetch,
// listing extraction, rating filter, and the optional authenticated review
// crawl. Everything runs strictly sequentially.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cartscout/internal/auth"
	"cartscout/internal/config"
	"cartscout/internal/extract"
	"cartscout/internal/fetcher"
	"cartscout/internal/reviews"
	"cartscout/internal/robots"
	"cartscout/internal/types"
)

// robotsAgent is the agent name used for robots.txt checks.
const robotsAgent = "*"

// Crawler owns the pipeline components and the one shared session.
type Crawler struct {
	cfg       *config.Config
	session   *fetcher.Session
	client    *fetcher.Client
	policy    *robots.Policy
	auth      *auth.Authenticator
	listings  *extract.ListingExtractor
	paginator *reviews.Paginator
	logger    *slog.Logger
}

// New builds a Crawler from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Crawler, error) {
	session, err := fetcher.NewSession(cfg.Auth.CookiesFile, cfg.Site.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	client := fetcher.NewClient(cfg, session, logger)

	listings, err := extract.NewListingExtractor(cfg.Site.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("create listing extractor: %w", err)
	}

	return &Crawler{
		cfg:       cfg,
		session:   session,
		client:    client,
		policy:    robots.New(cfg.Site.BaseURL, client.HTTP(), logger),
		auth:      auth.New(cfg, session, client.HTTP(), logger),
		listings:  listings,
		paginator: reviews.NewPaginator(client, cfg.Site.BaseURL, cfg.Crawler.PageDelay, logger),
		logger:    logger.With("component", "crawler"),
	}, nil
}

// Auth exposes the authenticator for the login command.
func (c *Crawler) Auth() *auth.Authenticator { return c.auth }

// Crawl runs the pipeline for one search request. A run with no matching
// listings returns an empty collection, not an error; fetch failures
// surface as empty results with logged errors.
func (c *Crawler) Crawl(ctx context.Context, req types.SearchRequest) ([]types.Listing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c.logger.Info("starting crawl", "keyword", req.Keyword,
		"min_rating", req.MinRating, "max_results", req.MaxResults)

	if c.cfg.Crawler.RespectRobotsTxt && !c.policy.CanCrawl("/s", robotsAgent) {
		c.logger.Warn("robots.txt disallows crawling search results")
		return nil, nil
	}

	markup, err := c.client.FetchSearch(ctx, req.Keyword)
	if err != nil {
		c.logger.Error("search fetch failed", "keyword", req.Keyword, "error", err)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		c.logger.Error("search page unparseable", "error", err)
		return nil, nil
	}

	listings := c.listings.Extract(doc, req.MaxResults)
	listings = extract.FilterByRating(listings, req.MinRating)
	c.logger.Info("listings after filter", "count", len(listings))

	if req.CrawlReviews && req.MaxReviewPages > 0 && len(listings) > 0 {
		c.crawlReviews(ctx, listings, req.MaxReviewPages)
	}

	return listings, nil
}

// crawlReviews attaches reviews to each listing in turn. A failed
// authentication check degrades to running without reviews rather than
// aborting the crawl.
func (c *Crawler) crawlReviews(ctx context.Context, listings []types.Listing, maxPages int) {
	if !c.auth.IsAuthenticated(ctx) {
		c.logger.Warn("not authenticated, skipping review crawl")
		return
	}
	if c.cfg.Crawler.RespectRobotsTxt && !c.policy.CanCrawl("/product-reviews", robotsAgent) {
		c.logger.Warn("robots.txt disallows crawling review pages")
		return
	}

	for i := range listings {
		if listings[i].URL == "" {
			continue
		}
		listings[i].Reviews = c.paginator.Crawl(ctx, listings[i].URL,
			maxPages, c.cfg.Crawler.MaxReviewsPerPage)

		if i < len(listings)-1 {
			select {
			case <-time.After(c.cfg.Crawler.Delay):
			case <-ctx.Done():
				return
			}
		}
	}
}
