package extract

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"cartscout/internal/types"
)

// reviewBlockSelectors locate repeated review blocks on a reviews page,
// first match wins, same discipline as the listing block selectors.
var reviewBlockSelectors = []string{
	`div[data-hook="review"]`,
	`.review`,
	`[data-hook="review"]`,
}

var (
	reviewerStrategies = []Strategy{
		{Selector: "span.a-profile-name"},
		{Selector: ".a-profile-name"},
		{Selector: `[data-hook="review-author"]`},
	}
	reviewRatingStrategies = []Strategy{
		{Selector: `[data-hook="review-star-rating"] .a-icon-alt`},
		{Selector: ".review-rating .a-icon-alt"},
		{Selector: ".a-icon-alt"},
	}
	reviewTitleStrategies = []Strategy{
		{Selector: `[data-hook="review-title"] span:not(.a-letter-space)`},
		{Selector: `a[data-hook="review-title"]`},
		{Selector: ".review-title"},
	}
	reviewBodyStrategies = []Strategy{
		{Selector: `[data-hook="review-body"] span`},
		{Selector: `[data-hook="review-body"]`},
		{Selector: ".review-text-content span"},
	}
	reviewDateStrategies = []Strategy{
		{Selector: `[data-hook="review-date"]`},
		{XPath: `//span[contains(@class, "review-date")]`},
	}
	helpfulStrategies = []Strategy{
		{Selector: `[data-hook="helpful-vote-statement"]`},
		{Selector: ".cr-vote-text"},
	}
)

// ReviewExtractor pulls customer reviews out of a reviews page.
type ReviewExtractor struct {
	logger *slog.Logger
}

// NewReviewExtractor creates a review extractor.
func NewReviewExtractor(logger *slog.Logger) *ReviewExtractor {
	return &ReviewExtractor{logger: logger.With("component", "review_extractor")}
}

// Extract returns every review on the page that has body text. A block
// with no resolvable body is discarded entirely, even when the remaining
// fields extracted cleanly.
func (e *ReviewExtractor) Extract(doc *goquery.Document) []types.Review {
	var blocks *goquery.Selection
	for _, selector := range reviewBlockSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			blocks = found
			break
		}
	}
	if blocks == nil {
		return nil
	}

	var reviews []types.Review
	blocks.Each(func(i int, block *goquery.Selection) {
		review, ok := e.extractReview(block)
		if !ok {
			return
		}
		reviews = append(reviews, review)
	})
	return reviews
}

// extractReview pulls the six review fields from one block. The body is
// the one required field.
func (e *ReviewExtractor) extractReview(block *goquery.Selection) (types.Review, bool) {
	body := FirstMatch(block, reviewBodyStrategies)
	if !body.OK {
		return types.Review{}, false
	}

	review := types.Review{
		ReviewerName: types.AnonymousReviewer,
		Body:         body.Value,
	}

	if reviewer := FirstMatch(block, reviewerStrategies); reviewer.OK {
		review.ReviewerName = reviewer.Value
	}
	if rating := FirstMatch(block, reviewRatingStrategies); rating.OK {
		review.Rating = ParseRating(rating.Value)
	}
	if title := FirstMatch(block, reviewTitleStrategies); title.OK {
		review.Title = title.Value
	}
	if date := FirstMatch(block, reviewDateStrategies); date.OK {
		review.Date = date.Value
	}
	if helpful := FirstMatch(block, helpfulStrategies); helpful.OK {
		review.HelpfulVotes = ParseCount(helpful.Value)
	}

	return review, true
}
