package types

import (
	"errors"
	"fmt"
	"strings"
)

// SearchRequest describes one crawl invocation. It is constructed once and
// read-only input to the pipeline.
type SearchRequest struct {
	// Keyword is the search term. Must be non-empty.
	Keyword string

	// MinRating drops listings rated below this threshold. Zero disables
	// the filter.
	MinRating float64

	// MaxResults caps the number of listings returned. Must be positive.
	MaxResults int

	// CrawlReviews enables the per-listing review crawl.
	CrawlReviews bool

	// MaxReviewPages caps review page fetches per listing.
	MaxReviewPages int
}

// Validate checks the request parameters before the pipeline runs.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return errors.New("keyword must not be empty")
	}
	if r.MinRating < 0 || r.MinRating > 5 {
		return fmt.Errorf("min rating %.1f out of range [0, 5]", r.MinRating)
	}
	if r.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive, got %d", r.MaxResults)
	}
	if r.MaxReviewPages < 0 {
		return fmt.Errorf("max review pages must not be negative, got %d", r.MaxReviewPages)
	}
	return nil
}
