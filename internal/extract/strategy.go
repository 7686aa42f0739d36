// Package extract locates product listings and reviews within fetched
// markup using ordered lists of fallback strategies: the first strategy
// that yields a non-empty trimmed value wins.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Strategy describes one way to locate a field within a block of markup.
// Exactly one of Selector (CSS, via goquery) or XPath (via htmlquery) is
// set. Attr names an attribute to read instead of text content.
type Strategy struct {
	Selector string
	XPath    string
	Attr     string
}

// Result is the outcome of a field extraction attempt. Missing fields are
// an expected state, not an error: callers substitute their defaults when
// OK is false.
type Result struct {
	Value string
	OK    bool
}

// FirstMatch evaluates strategies in order against a block and returns the
// first non-empty trimmed value. Strategies that match nothing, or match a
// node with only whitespace, are skipped.
func FirstMatch(block *goquery.Selection, strategies []Strategy) Result {
	for _, st := range strategies {
		var value string
		switch {
		case st.XPath != "":
			value = matchXPath(block, st)
		case st.Attr != "":
			value, _ = block.Find(st.Selector).First().Attr(st.Attr)
		default:
			value = block.Find(st.Selector).First().Text()
		}

		value = strings.TrimSpace(value)
		if value != "" {
			return Result{Value: value, OK: true}
		}
	}
	return Result{}
}

// matchXPath evaluates an XPath expression against the block's nodes.
func matchXPath(block *goquery.Selection, st Strategy) string {
	for _, node := range block.Nodes {
		found, err := htmlquery.Query(node, st.XPath)
		if err != nil || found == nil {
			continue
		}
		if st.Attr != "" {
			if v := attrValue(found, st.Attr); v != "" {
				return v
			}
			continue
		}
		if v := strings.TrimSpace(htmlquery.InnerText(found)); v != "" {
			return v
		}
	}
	return ""
}

func attrValue(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

var (
	// decimalPattern matches the first integer-or-decimal token in rating
	// text such as "4.5 out of 5 stars".
	decimalPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// countPattern matches the first digit run, thousands separators
	// included, in text such as "1,234 ratings".
	countPattern = regexp.MustCompile(`[\d,]*\d`)
)

// ParseRating extracts a star rating from text like "4.5 out of 5 stars".
// Unparseable or empty text yields 0.0.
func ParseRating(text string) float64 {
	token := decimalPattern.FindString(text)
	if token == "" {
		return 0.0
	}
	rating, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0.0
	}
	return rating
}

// ParseCount extracts a non-negative integer from text like "1,234 ratings"
// or "15 people found this helpful", stripping thousands separators.
// Unparseable or empty text yields 0.
func ParseCount(text string) int {
	token := countPattern.FindString(text)
	if token == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(token, ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
