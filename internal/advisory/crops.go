package advisory

import (
	"strings"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

// regional extends a base list for specific states.
type regional struct {
	states []string
	crops  []string
}

type cropTable struct {
	base     []string
	regional regional
}

var transition = cropTable{
	base:     []string{"Vegetables", "Pulses", "Oilseeds"},
	regional: regional{[]string{"tamil nadu", "kerala"}, []string{"Banana", "Coconut", "Spices"}},
}

// seasonCrops is keyed by SeasonInfo.Name. Unknown seasons use transition.
var seasonCrops = map[string]cropTable{
	"Winter": {
		base:     []string{"Wheat", "Barley", "Mustard", "Peas", "Chickpeas"},
		regional: regional{[]string{"punjab", "haryana", "uttar pradesh"}, []string{"Potato", "Onion", "Garlic"}},
	},
	"Monsoon": {
		base:     []string{"Rice", "Maize", "Cotton", "Soybean", "Groundnut"},
		regional: regional{[]string{"maharashtra", "karnataka", "andhra pradesh"}, []string{"Sugarcane", "Turmeric", "Pulses"}},
	},
	"Summer": {
		base: []string{"Millets", "Vegetables", "Fodder crops"},
	},
	"Post-Monsoon": transition,
}

var mildSummerCrops = []string{"Cucumber", "Bottle Gourd", "Bitter Gourd"}

// CropSuggestions picks crops for the season, extended by state and, in
// summer, by a mild temperature. loc and w may be nil or carry errors; only
// usable fields are consulted.
func CropSuggestions(loc *models.LocationInfo, w *models.WeatherInfo, s models.SeasonInfo) []string {
	state := ""
	if loc.OK() {
		state = strings.ToLower(strings.TrimSpace(loc.State))
	}

	table, ok := seasonCrops[s.Name]
	if !ok {
		table = transition
	}
	out := append([]string(nil), table.base...)
	out = appendRegional(out, state, table.regional)
	if s.Name == "Summer" && w.OK() && w.Temperature < hotThreshold {
		out = append(out, mildSummerCrops...)
	}
	return capList(out)
}

func appendRegional(out []string, state string, r regional) []string {
	for _, st := range r.states {
		if st == state {
			return append(out, r.crops...)
		}
	}
	return out
}

func capList(in []string) []string {
	if len(in) > MaxCropSuggestions {
		return in[:MaxCropSuggestions]
	}
	return in
}
