package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var totalPattern = regexp.MustCompile(`(?i)([\d,]+)\s+(?:results|suppliers|companies|matches)\b`)

const countSelector = `[class*="result-count"], [class*="results-count"], [class*="resultCount"], [data-total]`

// TotalResults returns the result count a search page advertises, such as
// "1,234 suppliers found", or 0 when the page does not say.
func TotalResults(doc *goquery.Document) int {
	if el := doc.Find(countSelector).First(); el.Length() > 0 {
		if v, ok := el.Attr("data-total"); ok {
			if n := parseCount(v); n > 0 {
				return n
			}
		}
		if n := parseCount(el.Text()); n > 0 {
			return n
		}
		if m := totalPattern.FindStringSubmatch(el.Text()); m != nil {
			return parseCount(m[1])
		}
	}
	if m := totalPattern.FindStringSubmatch(doc.Find("body").Text()); m != nil {
		return parseCount(m[1])
	}
	return 0
}

func parseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
