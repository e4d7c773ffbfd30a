// Package advisory derives farming alerts and crop suggestions from weather,
// season and region. All functions are pure.
package advisory

import (
	"strings"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

// MaxCropSuggestions caps the crop list.
const MaxCropSuggestions = 5

const (
	hotThreshold   = 35.0
	coldThreshold  = 10.0
	humidThreshold = 80
	aridThreshold  = 30
)

type conditionRule struct {
	keywords []string
	alert    string
}

var conditionRules = []conditionRule{
	{[]string{"rain", "shower"}, "Rain alert: Good for irrigation but watch for waterlogging"},
	{[]string{"storm", "cyclone"}, "Storm alert: Protect crops from wind damage"},
	{[]string{"drought", "dry"}, "Drought alert: Implement water conservation measures"},
}

// seasonAlerts is keyed by SeasonInfo.Name.
var seasonAlerts = map[string]string{
	"Winter":  "Winter season: Protect crops from frost and cold waves",
	"Monsoon": "Monsoon season: Ensure proper drainage to prevent waterlogging",
	"Summer":  "Summer season: Increase irrigation frequency for crops",
}

// Alerts returns weather alerts (when w is usable) followed by season alerts.
func Alerts(w *models.WeatherInfo, s models.SeasonInfo) []string {
	alerts := []string{}
	if w.OK() {
		switch {
		case w.Temperature > hotThreshold:
			alerts = append(alerts, "High temperature alert: Consider irrigation and shading for crops")
		case w.Temperature < coldThreshold:
			alerts = append(alerts, "Low temperature alert: Protect sensitive crops from cold stress")
		}
		switch {
		case w.Humidity > humidThreshold:
			alerts = append(alerts, "High humidity alert: Watch for fungal diseases in crops")
		case w.Humidity < aridThreshold:
			alerts = append(alerts, "Low humidity alert: Increased irrigation may be needed")
		}
		cond := strings.ToLower(w.Conditions)
		for _, rule := range conditionRules {
			if containsAny(cond, rule.keywords) {
				alerts = append(alerts, rule.alert)
			}
		}
	}
	if alert, ok := seasonAlerts[s.Name]; ok {
		alerts = append(alerts, alert)
	}
	return alerts
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
