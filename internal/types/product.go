package types

// Sentinel values used when a field cannot be extracted.
const (
	// PriceNotAvailable is recorded when no price element resolves.
	PriceNotAvailable = "N/A"

	// AnonymousReviewer is recorded when a review carries no profile name.
	AnonymousReviewer = "Anonymous"
)

// Listing is one product record extracted from a search results page.
type Listing struct {
	// Title is the product name. A block with no resolvable title is
	// never turned into a Listing.
	Title string `json:"title"`

	// Price is the free-text price string, PriceNotAvailable when absent.
	Price string `json:"price"`

	// Rating is the star rating in [0.0, 5.0], 0.0 when unparseable.
	Rating float64 `json:"rating"`

	// ReviewsCount is the number of ratings shown on the listing, 0 when
	// unparseable.
	ReviewsCount int `json:"reviews_count"`

	// URL is the absolute product URL, empty when no link resolves.
	URL string `json:"url,omitempty"`

	// Reviews holds crawled customer reviews, empty unless review
	// crawling was requested and succeeded.
	Reviews []Review `json:"reviews,omitempty"`
}

// Review is one customer review attached to a listing.
type Review struct {
	ReviewerName string  `json:"reviewer_name"`
	Rating       float64 `json:"rating"`
	Title        string  `json:"title,omitempty"`

	// Body is the review text. A review block with no extractable body
	// is discarded entirely rather than returned as a partial record.
	Body string `json:"body"`

	Date         string `json:"date,omitempty"`
	HelpfulVotes int    `json:"helpful_votes"`
}
