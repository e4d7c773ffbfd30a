package composer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kjstillabower/agri-advisor/internal/classifier"
	"github.com/kjstillabower/agri-advisor/internal/models"
)

// Answer source labels for template answers.
const (
	SourceLocationAPI = "Location API"
	SourceWeatherAPI  = "OpenWeather API"
	SourceRefusal     = "System Response"
	SourceSystem      = "System"
)

// RefusalText is returned for queries outside the agricultural domain.
const RefusalText = "Unfortunately, Question is not seems related to farming category. I'm an agricultural assistant specialized in farming and related topics. Please ask me questions related to agriculture."

// maxForecastPoints bounds the forecast periods appended to weather answers.
const maxForecastPoints = 3

// Special answers pure location and pure weather queries from gateway data
// without a model call. It returns false when the query has farming context,
// is not a location/weather query, or the data it needs is unavailable; the
// caller then continues to the model path.
func Special(intent classifier.Intent, loc *models.LocationInfo, w *models.WeatherInfo, fc *models.ForecastInfo) (Answer, bool) {
	if intent.FarmContext {
		return Answer{}, false
	}

	if intent.NeedsWeather {
		if !w.OK() {
			return Answer{}, false
		}
		var text string
		if intent.Location != "" && !intent.Deictic {
			name := w.Location
			if name == "" {
				name = intent.Location
			}
			text = fmt.Sprintf("Weather in %s: %s°C, %s, Humidity: %d%%.",
				name, formatTemp(w.Temperature), w.Conditions, w.Humidity)
		} else {
			name := w.Location
			if name == "" {
				name = "your area"
			}
			text = fmt.Sprintf("Current weather in %s: %s°C, %s, Humidity: %d%%.",
				name, formatTemp(w.Temperature), w.Conditions, w.Humidity)
		}
		if intent.WantsForecast {
			text += forecastSentence(fc)
		}
		return Answer{Text: text, Source: SourceWeatherAPI, Path: PathTemplate}, true
	}

	if intent.LocationOnly {
		if !loc.OK() {
			return Answer{}, false
		}
		return Answer{
			Text: fmt.Sprintf("Your current location is %s, %s, %s.",
				orUnknown(loc.City), orUnknown(loc.State), orUnknown(loc.Country)),
			Source: SourceLocationAPI,
			Path:   PathTemplate,
		}, true
	}
	return Answer{}, false
}

func forecastSentence(fc *models.ForecastInfo) string {
	if !fc.OK() || len(fc.Forecasts) == 0 {
		return ""
	}
	points := fc.Forecasts
	if len(points) > maxForecastPoints {
		points = points[:maxForecastPoints]
	}
	parts := make([]string, 0, len(points))
	for _, p := range points {
		parts = append(parts, fmt.Sprintf("%s: %s°C, %s", p.DateTime, formatTemp(p.Temperature), p.Conditions))
	}
	return " Forecast: " + strings.Join(parts, "; ") + "."
}

func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
