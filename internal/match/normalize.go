// Package match decides whether two supplier names describe the same company.
package match

import (
	"strings"
	"unicode"
)

// legalSuffixes are dropped from the end of a name before comparison.
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"lp":           true,
	"llp":          true,
	"plc":          true,
	"pllc":         true,
	"pc":           true,
}

// Tokens lowercases name, removes periods and splits it on anything that is
// not a letter or digit. Trailing legal suffixes ("Inc", "LLC", "Corp", ...)
// are removed unless nothing else would remain.
func Tokens(name string) []string {
	lower := strings.ToLower(strings.ReplaceAll(name, ".", ""))
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	end := len(tokens)
	for end > 1 && legalSuffixes[tokens[end-1]] {
		end--
	}
	return tokens[:end]
}

// NormalizeName returns the merge key for a company name: its Tokens joined
// without separators. "Acme Inc." and "ACME, Inc" both become "acme".
func NormalizeName(name string) string {
	return strings.Join(Tokens(name), "")
}
