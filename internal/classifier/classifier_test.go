package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifier_IsAgricultural(t *testing.T) {
	c := NewDefault()
	tests := []struct {
		query string
		want  bool
	}{
		{"When should I sow wheat?", true},
		{"best fertilizer for tomatoes", true},
		{"What is the weather in Mumbai", true},
		{"where am i", true},
		{"Tell me a joke about computers", false},
		{"Who won the football match yesterday?", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := c.IsAgricultural(tt.query); got != tt.want {
				t.Errorf("IsAgricultural(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestClassifier_NeedsLocation(t *testing.T) {
	c := NewDefault()
	tests := []struct {
		query string
		want  bool
	}{
		{"weather in Delhi", true},
		{"which crops grow well in my region", true},
		{"what crops should I plant here", true},
		{"best crop for this soil", true},
		{"suggest crops for winter", false},
		{"how to make compost", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := c.NeedsLocation(tt.query); got != tt.want {
				t.Errorf("NeedsLocation(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// TestClassifier_CropDeicticRequiresWholeWord verifies that "my" hidden inside
// another word does not turn a crop query into a location query.
func TestClassifier_CropDeicticRequiresWholeWord(t *testing.T) {
	c := NewDefault()
	if c.NeedsLocation("crop economy basics") {
		t.Error("NeedsLocation() = true, want false when deictic word only appears inside another word")
	}
}

func TestClassifier_NeedsWeather(t *testing.T) {
	c := NewDefault()
	if !c.NeedsWeather("Will it rain tomorrow?") {
		t.Error("NeedsWeather(rain) = false, want true")
	}
	if c.NeedsWeather("how to store onions") {
		t.Error("NeedsWeather(onions) = true, want false")
	}
}

func TestClassifier_ExtractLocation(t *testing.T) {
	c := NewDefault()
	tests := []struct {
		name   string
		query  string
		want   string
		wantOK bool
	}{
		{"known city", "what is the weather in Mumbai", "Mumbai", true},
		{"known city wins over preposition", "crops near Pune for summer", "Pune", true},
		{"first known city in list order", "compare mumbai and delhi", "Delhi", true},
		{"weather pattern", "weather in new york today", "New York", true},
		{"preposition pattern", "farming near Springfield", "Springfield", true},
		{"special phrase rejects", "weather at my location", "", false},
		{"here rejects", "what should I grow here", "", false},
		{"where does not count as here", "where in nairobi is rain expected", "Nairobi Is", true},
		{"short candidate rejected", "rain in ok", "", false},
		{"no location", "how to grow rice", "", false},
		{"city inside word ignored", "methane emissions from paddy", "", false},
		{"trailing punctuation trimmed", "forecast for Nagpur?", "Nagpur", true},
		{"crop after for is not a place", "temperature for wheat growing", "", false},
		{"crop after of is not a place", "best time of sowing rice", "", false},
		{"later preposition still matches", "rain for wheat in Shelbyville", "Shelbyville", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.ExtractLocation(tt.query)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractLocation(%q) = (%q, %v), want (%q, %v)", tt.query, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		query string
		want  Intent
	}{
		{
			query: "What is my current location?",
			want: Intent{
				Agricultural:  true,
				NeedsLocation: true,
				Deictic:       true,
				LocationOnly:  true,
			},
		},
		{
			query: "what is the weather in Mumbai",
			want: Intent{
				Agricultural:  true,
				NeedsLocation: true,
				NeedsWeather:  true,
				Location:      "Mumbai",
			},
		},
		{
			query: "suggest crops for winter",
			want: Intent{
				Agricultural: true,
				FarmContext:  true,
				Location:     "Winter",
			},
		},
		{
			query: "weather forecast for Jaipur",
			want: Intent{
				Agricultural:  true,
				NeedsLocation: true,
				NeedsWeather:  true,
				WantsForecast: true,
				Location:      "Jaipur",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Classify(tt.query)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestLoadRules_OverridesOnlyPresentLists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := "known_cities:\n  - Springfield\n  - Shelbyville\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if len(rules.KnownCities) != 2 {
		t.Errorf("KnownCities len = %d, want 2", len(rules.KnownCities))
	}
	if len(rules.Signals) != len(DefaultRules().Signals) {
		t.Errorf("Signals len = %d, want default %d", len(rules.Signals), len(DefaultRules().Signals))
	}

	c := New(rules)
	got, ok := c.ExtractLocation("is it raining in shelbyville")
	if !ok || got != "Shelbyville" {
		t.Errorf("ExtractLocation() = (%q, %v), want (Shelbyville, true)", got, ok)
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadRules() error = nil, want error for missing file")
	}
}
