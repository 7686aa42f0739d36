package extract

import (
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"cartscout/internal/types"
)

// listingBlockSelectors locate repeated search-result blocks. The first
// selector that matches at least one block wins; block sets from different
// selectors are never merged.
var listingBlockSelectors = []string{
	`div[data-component-type="s-search-result"]`,
	`.s-result-item`,
	`[data-asin]`,
}

var (
	titleStrategies = []Strategy{
		{Selector: "h2 a span"},
		{Selector: ".s-size-mini .s-color-base"},
		{Selector: `[data-cy="title-recipe-title"]`},
		{Selector: "h2 span"},
	}
	priceStrategies = []Strategy{
		{Selector: ".a-price-whole"},
		{Selector: ".a-price .a-offscreen"},
		{Selector: ".a-price-range"},
		{Selector: ".a-price-symbol"},
	}
	ratingStrategies = []Strategy{
		{Selector: ".a-icon-alt"},
		{Selector: ".a-icon-star-small .a-icon-alt"},
		{Selector: `[aria-label*="stars"]`, Attr: "aria-label"},
	}
	reviewCountStrategies = []Strategy{
		{Selector: ".a-size-base"},
		{Selector: `[aria-label*="ratings"]`, Attr: "aria-label"},
		{Selector: ".a-link-normal"},
	}
)

// ListingExtractor pulls product listings out of a search results page.
type ListingExtractor struct {
	baseURL *url.URL
	logger  *slog.Logger
}

// NewListingExtractor creates an extractor resolving listing URLs against
// baseURL.
func NewListingExtractor(baseURL string, logger *slog.Logger) (*ListingExtractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &ListingExtractor{
		baseURL: base,
		logger:  logger.With("component", "listing_extractor"),
	}, nil
}

// Extract returns up to maxResults listings from the document. Blocks with
// no resolvable title are dropped silently; a bad block never aborts the
// rest of the batch.
func (e *ListingExtractor) Extract(doc *goquery.Document, maxResults int) []types.Listing {
	var blocks *goquery.Selection
	for _, selector := range listingBlockSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			blocks = found
			break
		}
	}
	if blocks == nil {
		e.logger.Info("no listing blocks found")
		return nil
	}
	e.logger.Info("listing blocks found", "count", blocks.Length())

	listings := make([]types.Listing, 0, maxResults)
	blocks.EachWithBreak(func(i int, block *goquery.Selection) bool {
		if len(listings) >= maxResults {
			return false
		}
		listing, ok := e.extractListing(block)
		if !ok {
			return true
		}
		listings = append(listings, listing)
		return true
	})
	return listings
}

// extractListing pulls the five listing fields from one block. Every field
// except the title degrades to its default when missing.
func (e *ListingExtractor) extractListing(block *goquery.Selection) (types.Listing, bool) {
	title := FirstMatch(block, titleStrategies)
	if !title.OK {
		return types.Listing{}, false
	}

	listing := types.Listing{
		Title: title.Value,
		Price: types.PriceNotAvailable,
	}

	if price := FirstMatch(block, priceStrategies); price.OK {
		listing.Price = price.Value
	}
	if rating := FirstMatch(block, ratingStrategies); rating.OK {
		listing.Rating = ParseRating(rating.Value)
	}
	if count := FirstMatch(block, reviewCountStrategies); count.OK {
		listing.ReviewsCount = ParseCount(count.Value)
	}
	listing.URL = e.listingURL(block)

	return listing, true
}

// listingURL resolves the block's first link against the site base.
func (e *ListingExtractor) listingURL(block *goquery.Selection) string {
	href, ok := block.Find("a[href]").First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.baseURL.ResolveReference(ref).String()
}
