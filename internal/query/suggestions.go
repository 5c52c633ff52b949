package query

import "fmt"

// DefaultSuggestions are example queries offered when the user sends an
// empty AI search.
func DefaultSuggestions() []string {
	return []string{
		"CNC machining suppliers in Ohio",
		"Injection molding companies near Detroit, MI",
		"ISO 9001 certified metal fabrication in Texas",
		"Powder coating and finishing services in Pennsylvania",
		"Contract electronics assembly from California",
	}
}

// RefinementSuggestions proposes ways to narrow or widen a search given how it
// was interpreted and how many results came back.
func RefinementSuggestions(interp Interpretation, resultCount int) []string {
	var out []string
	if interp.Location == "" {
		out = append(out, "Add a location to narrow results, e.g. \"in Ohio\" or \"near Detroit, MI\"")
	}
	if interp.Category == "" {
		out = append(out, fmt.Sprintf("Mention a process such as %q or %q", "CNC machining", "injection molding"))
	}
	switch {
	case resultCount == 0:
		out = append(out, "Try broader keywords or remove the location")
	case resultCount >= 20:
		out = append(out, "Add a certification (e.g. ISO 9001, AS9100) to narrow the list")
	}
	return out
}
