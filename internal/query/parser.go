package query

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/strategicvalueplus/scout/internal/supplier"
)

// DefaultKeywords is used when a query has nothing left after cleanup.
const DefaultKeywords = "manufacturing"

// Interpretation is the structured reading of a free-text query.
type Interpretation struct {
	Query     string `json:"query"`
	Keywords  string `json:"keywords"`
	Location  string `json:"location,omitempty"`
	StateCode string `json:"stateCode,omitempty"`
	Category  string `json:"category,omitempty"`
	// Method records how the query was interpreted: "pattern" or "llm".
	Method string `json:"method"`
}

// Criteria converts the interpretation into search criteria.
func (i Interpretation) Criteria() supplier.Criteria {
	return supplier.Criteria{
		Keywords: i.Keywords,
		Location: i.Location,
		Category: i.Category,
	}
}

// Interpreter turns free text into an Interpretation.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (Interpretation, error)
}

// locationTail captures the place name following a location preposition. It
// stops at a trailing clause ("with ...", "for ..."), punctuation or the end
// of the input, and keeps a ", ST" suffix when present.
const locationTail = `(\p{L}[\p{L} .'\-]*?(?:,\s*\p{L}{2}\b)?)(?:\s+(?:with|for|that|who|which|and|or|offering|providing|having)\b|\s*[,;!?]|\.?\s*$)`

// Location patterns in priority order; the first match wins.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blocated\s+in\s+` + locationTail),
	regexp.MustCompile(`(?i)\bin\s+` + locationTail),
	regexp.MustCompile(`(?i)\bfrom\s+` + locationTail),
	regexp.MustCompile(`(?i)\bnear\s+` + locationTail),
}

var (
	fillerPattern     = regexp.MustCompile(`(?i)\b(?:looking\s+for|suppliers?|manufacturers?|companies|company|find|search|need|want)\b`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
	strayPunctPattern = regexp.MustCompile(`(?:\s[,;:.!?\-]+)+(?:\s|$)`)
)

// countryPattern matches a ", USA" style clause left after the place.
var countryPattern = regexp.MustCompile(`(?i)^\s*,\s*(?:(?:usa|us|united\s+states(?:\s+of\s+america)?|america|canada|mexico)\b|u\.s\.(?:a\.)?)`)

// Parser is the pattern-matching query interpreter.
type Parser struct {
	// DefaultKeywords replaces an empty keyword residue.
	DefaultKeywords string
	logger          *slog.Logger
}

// NewParser creates a Parser. An empty defaultKeywords falls back to
// DefaultKeywords.
func NewParser(defaultKeywords string, logger *slog.Logger) *Parser {
	if strings.TrimSpace(defaultKeywords) == "" {
		defaultKeywords = DefaultKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		DefaultKeywords: defaultKeywords,
		logger:          logger,
	}
}

// Interpret implements Interpreter. It never fails.
func (p *Parser) Interpret(_ context.Context, text string) (Interpretation, error) {
	return p.Parse(text), nil
}

// Parse extracts keywords, location and category from text. It always
// returns a result.
func (p *Parser) Parse(text string) Interpretation {
	text = strings.TrimSpace(text)
	out := Interpretation{
		Query:  text,
		Method: "pattern",
	}

	residue := text
	for _, re := range locationPatterns {
		idx := re.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		loc := strings.TrimSpace(text[idx[2]:idx[3]])
		loc = strings.TrimRight(loc, " .")
		if loc == "" {
			continue
		}
		out.Location = loc
		// Remove the preposition and the place, but keep any trailing clause.
		rest := text[idx[3]:]
		if m := countryPattern.FindStringIndex(rest); m != nil {
			rest = rest[m[1]:]
		}
		residue = text[:idx[0]] + " " + rest
		break
	}
	out.StateCode = StateCode(out.Location)
	out.Category = MatchCategory(text)
	out.Keywords = cleanKeywords(residue)

	if out.Keywords == "" {
		out.Keywords = p.DefaultKeywords
	}

	p.logger.Debug("parsed query",
		"query", text,
		"keywords", out.Keywords,
		"location", out.Location,
		"category", out.Category,
	)
	return out
}

func cleanKeywords(s string) string {
	s = fillerPattern.ReplaceAllString(s, " ")
	s = multiSpacePattern.ReplaceAllString(s, " ")
	s = strayPunctPattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,.;:!?-")
}
