package extract

import (
	"testing"

	"cartscout/internal/types"
)

const reviewsHTML = `<!DOCTYPE html>
<html>
<body>
<div id="cm_cr-review_list">
	<div data-hook="review" id="R1">
		<span class="a-profile-name">Jane D.</span>
		<i data-hook="review-star-rating"><span class="a-icon-alt">5.0 out of 5 stars</span></i>
		<a data-hook="review-title"><span>Great product</span></a>
		<span data-hook="review-date">Reviewed in the United States on January 5, 2024</span>
		<span data-hook="review-body"><span>Works exactly as described. Très bien!</span></span>
		<span data-hook="helpful-vote-statement">15 people found this helpful</span>
	</div>
	<div data-hook="review" id="R2">
		<i data-hook="review-star-rating"><span class="a-icon-alt">4 out of 5 stars</span></i>
		<span data-hook="review-body"><span>Decent value for the money.</span></span>
		<span data-hook="helpful-vote-statement">1,234 people found this helpful</span>
	</div>
	<div data-hook="review" id="R3">
		<span class="a-profile-name">Empty B.</span>
		<i data-hook="review-star-rating"><span class="a-icon-alt">3 out of 5 stars</span></i>
		<a data-hook="review-title"><span>No text</span></a>
		<span data-hook="review-body"><span>   </span></span>
	</div>
</div>
</body>
</html>`

func TestExtractReviews(t *testing.T) {
	e := NewReviewExtractor(testLogger)
	reviews := e.Extract(mustDoc(t, reviewsHTML))

	// the whitespace-only body block must be discarded entirely
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	for _, r := range reviews {
		if r.Body == "" {
			t.Errorf("review %q has empty body", r.Title)
		}
	}

	first := reviews[0]
	if first.ReviewerName != "Jane D." {
		t.Errorf("reviewer = %q", first.ReviewerName)
	}
	if first.Rating != 5.0 {
		t.Errorf("rating = %v, want 5.0", first.Rating)
	}
	if first.Title != "Great product" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Body != "Works exactly as described. Très bien!" {
		t.Errorf("body = %q", first.Body)
	}
	if first.Date != "Reviewed in the United States on January 5, 2024" {
		t.Errorf("date = %q", first.Date)
	}
	if first.HelpfulVotes != 15 {
		t.Errorf("helpful votes = %d, want 15", first.HelpfulVotes)
	}
}

func TestExtractReviewsDefaults(t *testing.T) {
	e := NewReviewExtractor(testLogger)
	reviews := e.Extract(mustDoc(t, reviewsHTML))
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}

	second := reviews[1]
	if second.ReviewerName != types.AnonymousReviewer {
		t.Errorf("reviewer = %q, want %q", second.ReviewerName, types.AnonymousReviewer)
	}
	if second.Title != "" {
		t.Errorf("title = %q, want empty", second.Title)
	}
	if second.HelpfulVotes != 1234 {
		t.Errorf("helpful votes = %d, want 1234", second.HelpfulVotes)
	}
}

func TestExtractReviewsEmptyPage(t *testing.T) {
	e := NewReviewExtractor(testLogger)
	reviews := e.Extract(mustDoc(t, `<html><body><p>no reviews yet</p></body></html>`))
	if len(reviews) != 0 {
		t.Errorf("expected no reviews, got %d", len(reviews))
	}
}
