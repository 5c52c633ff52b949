package match

import "fmt"

// Matcher reports whether two company names refer to the same company.
type Matcher interface {
	Match(a, b string) bool
}

// Keyer is implemented by matchers whose decision reduces to equality of a
// per-name key. Callers can index records by key instead of comparing pairs.
type Keyer interface {
	Key(name string) string
}

// Exact matches names whose normalized keys are equal and non-empty.
type Exact struct{}

// Key implements Keyer.
func (Exact) Key(name string) string { return NormalizeName(name) }

// Match implements Matcher.
func (Exact) Match(a, b string) bool {
	ka := NormalizeName(a)
	return ka != "" && ka == NormalizeName(b)
}

// TokenSet matches names whose normalized token sets have a Jaccard
// similarity of at least Threshold. It tolerates reordered or extra words
// ("Acme Precision Machining" vs "Acme Machining Precision") at the cost of
// more false merges as the threshold drops.
type TokenSet struct {
	Threshold float64
}

// Match implements Matcher.
func (t TokenSet) Match(a, b string) bool {
	if NormalizeName(a) == "" || NormalizeName(b) == "" {
		return false
	}
	return Similarity(a, b) >= t.Threshold
}

// Similarity returns the Jaccard index of the token sets of a and b, in [0,1].
func Similarity(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}

	inter := 0
	for tok := range sa {
		if sb[tok] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(name string) map[string]bool {
	toks := Tokens(name)
	set := make(map[string]bool, len(toks))
	for _, t := range toks {
		set[t] = true
	}
	return set
}

// New returns the matcher for a configured strategy name.
func New(strategy string, threshold float64) (Matcher, error) {
	switch strategy {
	case "", "exact":
		return Exact{}, nil
	case "tokenset":
		if threshold <= 0 || threshold > 1 {
			return nil, fmt.Errorf("tokenset threshold must be in (0,1], got %v", threshold)
		}
		return TokenSet{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown matching strategy %q", strategy)
	}
}
