// Package reviews crawls per-product review pages, following numbered
// pagination until a page comes back empty or the page cap is reached.
package reviews

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cartscout/internal/extract"
	"cartscout/internal/fetcher"
	"cartscout/internal/types"
)

// asinPatterns match the product identifier embedded in a listing URL.
// The URL-encoded form is checked first since search result links usually
// carry it.
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`%2Fdp%2F([A-Z0-9]{10})`),
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/product/([A-Z0-9]{10})`),
}

// ExtractASIN pulls the product identifier out of a listing URL. Without
// an identifier there is nothing to crawl.
func ExtractASIN(listingURL string) (string, bool) {
	for _, pattern := range asinPatterns {
		if m := pattern.FindStringSubmatch(listingURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// Paginator fetches successive review pages for one listing.
type Paginator struct {
	client    *fetcher.Client
	extractor *extract.ReviewExtractor
	baseURL   string
	pageDelay time.Duration
	logger    *slog.Logger
}

// NewPaginator creates a Paginator. pageDelay is the fixed pause between
// page fetches.
func NewPaginator(client *fetcher.Client, baseURL string, pageDelay time.Duration, logger *slog.Logger) *Paginator {
	return &Paginator{
		client:    client,
		extractor: extract.NewReviewExtractor(logger),
		baseURL:   baseURL,
		pageDelay: pageDelay,
		logger:    logger.With("component", "review_paginator"),
	}
}

// ReviewsURL builds the canonical reviews-listing URL for a product.
func (p *Paginator) ReviewsURL(asin string) string {
	return fmt.Sprintf("%s/product-reviews/%s/ref=cm_cr_dp_d_show_all_btm?ie=UTF8&reviewerType=all_reviews", p.baseURL, asin)
}

// pageURL appends the page-number parameter for pages past the first.
func pageURL(reviewsURL string, page int) string {
	if page <= 1 {
		return reviewsURL
	}
	separator := "?"
	if strings.Contains(reviewsURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%spageNumber=%d", reviewsURL, separator, page)
}

// Crawl fetches review pages 1..maxPages for the listing, stopping early on
// the first page with zero reviews. Each page is truncated to maxPerPage.
// Any error aborts the remaining pagination and returns whatever reviews
// have accumulated so far.
func (p *Paginator) Crawl(ctx context.Context, listingURL string, maxPages, maxPerPage int) []types.Review {
	asin, ok := ExtractASIN(listingURL)
	if !ok {
		p.logger.Debug("skipping reviews", "url", listingURL, "error", types.ErrNoIdentifier)
		return nil
	}

	reviewsURL := p.ReviewsURL(asin)
	p.logger.Info("crawling reviews", "asin", asin, "max_pages", maxPages)

	var all []types.Review
	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			select {
			case <-time.After(p.pageDelay):
			case <-ctx.Done():
				return all
			}
		}

		pageReviews, err := p.crawlPage(ctx, pageURL(reviewsURL, page), maxPerPage)
		if err != nil {
			p.logger.Error("review page fetch failed, keeping partial results",
				"asin", asin, "page", page, "error", err)
			return all
		}
		if len(pageReviews) == 0 {
			break
		}
		all = append(all, pageReviews...)
	}

	p.logger.Info("review crawl complete", "asin", asin, "reviews", len(all))
	return all
}

// crawlPage fetches and parses one reviews page. Transient failures are
// retried with backoff before the page counts as failed.
func (p *Paginator) crawlPage(ctx context.Context, pageURL string, maxReviews int) ([]types.Review, error) {
	body, err := p.client.GetWithRetry(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}

	reviews := p.extractor.Extract(doc)
	if len(reviews) > maxReviews {
		reviews = reviews[:maxReviews]
	}
	return reviews, nil
}
