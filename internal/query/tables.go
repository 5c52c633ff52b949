package query

import (
	"regexp"
	"strings"
)

type category struct {
	name     string
	keywords []string
	patterns []*regexp.Regexp
}

// categories is ordered; the first category with a matching keyword wins.
var categories = buildCategories([]category{
	{name: "machining", keywords: []string{"machining", "cnc", "milling", "turning", "lathe"}},
	{name: "injection molding", keywords: []string{"injection molding", "injection", "molding", "moulding", "plastic", "plastics"}},
	{name: "metal fabrication", keywords: []string{"fabrication", "fabricating", "welding", "sheet metal", "stamping", "laser cutting"}},
	{name: "casting", keywords: []string{"casting", "castings", "foundry", "die cast"}},
	{name: "forging", keywords: []string{"forging", "forgings", "forged"}},
	{name: "electronics", keywords: []string{"electronics", "pcb", "circuit board", "wire harness", "cable assembly"}},
	{name: "finishing", keywords: []string{"plating", "anodizing", "powder coating", "painting", "finishing"}},
	{name: "additive manufacturing", keywords: []string{"3d printing", "additive"}},
	{name: "assembly", keywords: []string{"assembly", "contract manufacturing"}},
	{name: "tooling", keywords: []string{"tooling", "mold making", "die making", "fixtures", "jigs"}},
	{name: "packaging", keywords: []string{"packaging"}},
})

func buildCategories(cs []category) []category {
	for i := range cs {
		for _, kw := range cs[i].keywords {
			cs[i].patterns = append(cs[i].patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
	}
	return cs
}

// MatchCategory returns the first category whose keywords appear in text, or
// "" when none do.
func MatchCategory(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categories {
		for _, re := range c.patterns {
			if re.MatchString(lower) {
				return c.name
			}
		}
	}
	return ""
}

// Categories lists the known category names in priority order.
func Categories() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.name
	}
	return names
}

var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

var validCodes = func() map[string]bool {
	m := make(map[string]bool, len(stateCodes))
	for _, code := range stateCodes {
		m[code] = true
	}
	return m
}()

// StateCode maps a location to a two-letter US state code. It accepts a full
// state name ("Ohio"), a bare code ("OH") or a "City, ST" string. Unknown
// locations return "".
func StateCode(location string) string {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return ""
	}
	if code, ok := stateCodes[strings.ToLower(loc)]; ok {
		return code
	}
	if up := strings.ToUpper(loc); len(up) == 2 && validCodes[up] {
		return up
	}
	if idx := strings.LastIndex(loc, ","); idx >= 0 {
		return StateCode(loc[idx+1:])
	}
	return ""
}
