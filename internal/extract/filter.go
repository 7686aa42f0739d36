package extract

import (
	"cartscout/internal/types"
)

// FilterByRating returns the listings rated at or above minRating,
// preserving order. A threshold of zero or below disables the filter.
func FilterByRating(listings []types.Listing, minRating float64) []types.Listing {
	if minRating <= 0 {
		return listings
	}
	filtered := make([]types.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Rating >= minRating {
			filtered = append(filtered, l)
		}
	}
	return filtered
}
