// Package classifier derives routing signals from free-text queries using
// ordered keyword rule tables.
package classifier

import (
	"strings"
	"unicode"
)

// Intent is the full classification of one query.
type Intent struct {
	Agricultural  bool
	NeedsLocation bool
	NeedsWeather  bool
	WantsForecast bool
	// Deictic is set when the query refers to the caller's own position.
	Deictic bool
	// FarmContext is set when crop/farming terms are present; such queries
	// are never answered from templates.
	FarmContext  bool
	LocationOnly bool
	// Location is the place named in the query, empty when none was found.
	Location string
}

// Classifier evaluates a fixed Rules table. It is safe for concurrent use.
type Classifier struct {
	rules     Rules
	nonPlaces map[string]struct{}
}

// New returns a Classifier over rules. Terms are lowercased once here.
func New(rules Rules) *Classifier {
	r := Rules{
		SpecialPhrases: lowerAll(rules.SpecialPhrases),
		KnownCities:    lowerAll(rules.KnownCities),
		Prepositions:   lowerAll(rules.Prepositions),
		NonPlaces:      lowerAll(rules.NonPlaces),
	}
	for _, rule := range rules.Signals {
		rule.Terms = lowerAll(rule.Terms)
		rule.With = lowerAll(rule.With)
		r.Signals = append(r.Signals, rule)
	}
	nonPlaces := make(map[string]struct{}, len(r.NonPlaces))
	for _, w := range r.NonPlaces {
		nonPlaces[w] = struct{}{}
	}
	return &Classifier{rules: r, nonPlaces: nonPlaces}
}

// NewDefault returns a Classifier over DefaultRules.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify evaluates every rule and the location extractor.
func (c *Classifier) Classify(query string) Intent {
	q := strings.ToLower(query)
	loc, _ := c.extract(q)
	return Intent{
		Agricultural:  c.signal(q, SignalAgricultural),
		NeedsLocation: c.signal(q, SignalNeedsLocation),
		NeedsWeather:  c.signal(q, SignalNeedsWeather),
		WantsForecast: c.signal(q, SignalForecast),
		Deictic:       c.signal(q, SignalDeictic),
		FarmContext:   c.signal(q, SignalFarmContext),
		LocationOnly:  c.signal(q, SignalLocationOnly),
		Location:      loc,
	}
}

// IsAgricultural reports whether the query is within the assistant's domain.
func (c *Classifier) IsAgricultural(query string) bool {
	return c.signal(strings.ToLower(query), SignalAgricultural)
}

// NeedsLocation reports whether answering requires a resolved location.
func (c *Classifier) NeedsLocation(query string) bool {
	return c.signal(strings.ToLower(query), SignalNeedsLocation)
}

// NeedsWeather reports whether the query asks about weather.
func (c *Classifier) NeedsWeather(query string) bool {
	return c.signal(strings.ToLower(query), SignalNeedsWeather)
}

// ExtractLocation returns the place named in the query, title-cased.
func (c *Classifier) ExtractLocation(query string) (string, bool) {
	return c.extract(strings.ToLower(query))
}

func (c *Classifier) signal(q string, s Signal) bool {
	for _, rule := range c.rules.Signals {
		if rule.Signal != s {
			continue
		}
		if !matchAny(q, rule.Terms, rule.Mode) {
			continue
		}
		if len(rule.With) > 0 && !matchAny(q, rule.With, rule.WithMode) {
			continue
		}
		return true
	}
	return false
}

// extract applies, in order: special-phrase rejection, known cities, then
// preposition patterns.
func (c *Classifier) extract(q string) (string, bool) {
	if matchAny(q, c.rules.SpecialPhrases, MatchWord) {
		return "", false
	}
	for _, city := range c.rules.KnownCities {
		if containsWord(q, city) {
			return titleCase(city), true
		}
	}
	for _, prep := range c.rules.Prepositions {
		idx := indexWord(q, prep)
		if idx < 0 {
			continue
		}
		words := strings.Fields(q[idx+len(prep):])
		if len(words) > 2 {
			words = words[:2]
		}
		candidate := strings.TrimFunc(strings.Join(words, " "), isTrimmable)
		if len(candidate) <= 2 || c.isSpecial(candidate) || c.hasNonPlace(candidate) {
			continue
		}
		return titleCase(candidate), true
	}
	return "", false
}

func (c *Classifier) hasNonPlace(candidate string) bool {
	for _, w := range strings.Fields(candidate) {
		if _, ok := c.nonPlaces[strings.TrimFunc(w, isTrimmable)]; ok {
			return true
		}
	}
	return false
}

func (c *Classifier) isSpecial(s string) bool {
	for _, p := range c.rules.SpecialPhrases {
		if s == p {
			return true
		}
	}
	return false
}

func matchAny(q string, terms []string, mode MatchMode) bool {
	for _, t := range terms {
		if t == "" {
			continue
		}
		if mode == MatchWord {
			if containsWord(q, t) {
				return true
			}
			continue
		}
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}

func containsWord(s, term string) bool {
	return indexWord(s, term) >= 0
}

// indexWord returns the index of the first occurrence of term that is not
// glued to a letter on either side, or -1.
func indexWord(s, term string) int {
	offset := 0
	for {
		i := strings.Index(s[offset:], term)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(term)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return start
		}
		offset = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isTrimmable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

func lowerAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
