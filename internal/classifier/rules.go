package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Signal names a boolean fact derived from a query.
type Signal string

const (
	SignalAgricultural  Signal = "agricultural"
	SignalNeedsLocation Signal = "needs_location"
	SignalNeedsWeather  Signal = "needs_weather"
	SignalForecast      Signal = "forecast"
	SignalDeictic       Signal = "deictic"
	SignalFarmContext   Signal = "farm_context"
	SignalLocationOnly  Signal = "location_only"
)

// MatchMode controls how a term is found in the lowercased query.
type MatchMode string

const (
	// MatchSubstring fires on any occurrence, including inside longer words.
	MatchSubstring MatchMode = "substring"
	// MatchWord fires only when the term is bounded by non-letters.
	MatchWord MatchMode = "word"
)

// Rule raises Signal when any of Terms matches. When With is set, one of
// those terms must match as well.
type Rule struct {
	Signal   Signal    `yaml:"signal"`
	Terms    []string  `yaml:"terms"`
	Mode     MatchMode `yaml:"mode"`
	With     []string  `yaml:"with"`
	WithMode MatchMode `yaml:"with_mode"`
}

// Rules is the full vocabulary used by a Classifier. Order inside each list
// is significant for location extraction: first match wins.
type Rules struct {
	Signals []Rule `yaml:"signals"`
	// SpecialPhrases are deictic references that suppress text extraction.
	SpecialPhrases []string `yaml:"special_phrases"`
	KnownCities    []string `yaml:"known_cities"`
	// Prepositions are scanned in order; the one or two tokens that follow
	// become the candidate location.
	Prepositions []string `yaml:"prepositions"`
	// NonPlaces are words that never start or continue a place name, such
	// as crop names. A preposition candidate containing one is skipped.
	NonPlaces []string `yaml:"non_places"`
}

// LoadRules reads a YAML rule file. Lists present in the file replace the
// defaults; absent lists keep them.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read classifier rules: %w", err)
	}
	var fr Rules
	if err := yaml.Unmarshal(data, &fr); err != nil {
		return Rules{}, fmt.Errorf("parse classifier rules: %w", err)
	}
	r := DefaultRules()
	if len(fr.Signals) > 0 {
		r.Signals = fr.Signals
	}
	if len(fr.SpecialPhrases) > 0 {
		r.SpecialPhrases = fr.SpecialPhrases
	}
	if len(fr.KnownCities) > 0 {
		r.KnownCities = fr.KnownCities
	}
	if len(fr.Prepositions) > 0 {
		r.Prepositions = fr.Prepositions
	}
	if len(fr.NonPlaces) > 0 {
		r.NonPlaces = fr.NonPlaces
	}
	return r, nil
}

// DefaultRules returns the built-in vocabulary.
func DefaultRules() Rules {
	return Rules{
		Signals: []Rule{
			{Signal: SignalAgricultural, Mode: MatchSubstring, Terms: agriculturalTerms},
			{Signal: SignalAgricultural, Mode: MatchSubstring, Terms: []string{
				"weather", "temperature", "forecast", "rain", "humidity", "climate",
				"location", "where am i", "my location", "this area",
			}},
			{Signal: SignalNeedsLocation, Mode: MatchSubstring, Terms: []string{
				"weather", "temperature", "forecast", "rain", "sunny", "humidity",
				"climate", "local", "here", "my area", "region", "location",
				"where am i", "my location", "this area",
			}},
			{Signal: SignalNeedsLocation, Mode: MatchSubstring, Terms: cropTerms,
				With: []string{"my", "here", "this"}, WithMode: MatchWord},
			{Signal: SignalNeedsWeather, Mode: MatchSubstring, Terms: []string{
				"weather", "temperature", "forecast", "rain", "sunny", "humidity",
			}},
			{Signal: SignalForecast, Mode: MatchSubstring, Terms: []string{
				"forecast", "tomorrow", "next few days", "this week", "next week",
			}},
			{Signal: SignalDeictic, Mode: MatchWord, Terms: []string{
				"current location", "my location", "here", "this area", "my area",
			}},
			{Signal: SignalFarmContext, Mode: MatchSubstring, Terms: []string{
				"crop", "plant", "grow", "agriculture", "farming",
			}},
			{Signal: SignalLocationOnly, Mode: MatchSubstring, Terms: []string{
				"location", "where am i", "my location", "this area",
			}},
		},
		SpecialPhrases: []string{"current location", "my location", "here", "this area", "my area"},
		KnownCities:    knownCities,
		Prepositions: []string{
			"temperature of", "weather in", "weather at", "weather of",
			"forecast for", "humidity in", "rain in",
			"in", "at", "near", "around", "for", "of",
		},
		NonPlaces: append(append([]string{}, agriculturalTerms...), cropTerms...),
	}
}

var cropTerms = []string{
	"crop", "crops", "farming", "agriculture", "planting", "cultivation",
	"grow", "growing", "plant", "harvest",
}

var agriculturalTerms = []string{
	"crop", "crops", "farming", "agriculture", "plant", "plants", "harvest",
	"soil", "fertilizer", "irrigation", "pesticide", "cultivation", "grow",
	"growing", "farm", "farmer", "yield", "season", "monsoon", "rabi", "kharif",
	"vegetable", "fruit", "grain", "cereal", "pulse", "oilseed", "horticulture",
	"animal husbandry", "livestock", "dairy", "poultry", "fishery", "aquaculture",
	"weather", "rain", "temperature", "climate", "drought", "flood", "storm",
	"soil health", "crop rotation", "organic farming", "sustainable agriculture",
	"agroforestry", "permaculture", "greenhouse", "hydroponics", "aquaponics",
	"agricultural practices", "agricultural technology", "precision farming",
	"smart farming", "vertical farming", "urban farming", "agricultural research",
	"agricultural policy", "agricultural economics", "food security", "rural development",
	"agricultural extension", "agricultural education", "agricultural marketing", "sow",
	"wheat", "rice", "maize", "millet", "barley", "sugarcane", "cotton", "soybean",
	"groundnut", "mustard", "peas", "chickpeas", "potato", "onion", "garlic",
	"turmeric", "pulses",
}

var knownCities = []string{
	"delhi", "mumbai", "chennai", "kolkata", "bangalore", "hyderabad",
	"pune", "jaipur", "ahmedabad", "lucknow", "kanpur", "nagpur",
	"indore", "thane", "bhopal", "visakhapatnam", "patna", "ludhiana",
	"agra", "nashik", "faridabad", "meerut", "rajkot", "varanasi",
	"srinagar", "amritsar", "allahabad", "howrah", "gwalior", "jodhpur",
	"raipur", "kota", "chandigarh", "mysore", "bareilly", "guwahati",
	"jammu", "hubli", "solapur", "trivandrum", "kochi", "coimbatore",
	"madurai", "jabalpur", "asansol", "dhanbad", "vellore", "ajmer",
	"kolhapur", "shillong", "ulhasnagar", "jamnagar", "sangli", "bhilai",
	"guntur", "amravati", "noida", "bhagalpur", "warangal", "ranchi",
	"kurnool", "gurgaon", "gurugram", "nanded", "dehradun", "durgapur",
	"kakinada", "nellore", "tiruchirappalli", "ujjain", "muzaffarnagar",
}
