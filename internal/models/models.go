package models

import "time"

// LocationInfo is a resolved place. Source records how it was obtained
// ("IP geolocation", "query text"). A non-empty Error means the lookup failed.
type LocationInfo struct {
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Source    string  `json:"detected_via,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorKind string  `json:"error_kind,omitempty"`
}

// OK reports whether the location resolved without error.
func (l *LocationInfo) OK() bool {
	return l != nil && l.Error == ""
}

// HasCoordinates reports whether latitude/longitude were resolved.
func (l *LocationInfo) HasCoordinates() bool {
	return l != nil && l.Error == "" && (l.Latitude != 0 || l.Longitude != 0)
}

// WeatherInfo is normalized current weather.
type WeatherInfo struct {
	Location    string  `json:"location,omitempty"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Conditions  string  `json:"conditions,omitempty"`
	WindSpeed   float64 `json:"wind_speed"`
	Pressure    int     `json:"pressure"`
	Visibility  int     `json:"visibility,omitempty"`
	Error       string  `json:"error,omitempty"`
	ErrorKind   string  `json:"error_kind,omitempty"`
}

// OK reports whether weather data is present and usable.
func (w *WeatherInfo) OK() bool {
	return w != nil && w.Error == ""
}

// ForecastPoint is one periodic forecast entry.
type ForecastPoint struct {
	DateTime    string  `json:"datetime"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Conditions  string  `json:"conditions"`
	Humidity    int     `json:"humidity"`
}

// ForecastInfo holds the forecast for a named location.
type ForecastInfo struct {
	Location  string          `json:"location,omitempty"`
	Country   string          `json:"country,omitempty"`
	Forecasts []ForecastPoint `json:"forecasts,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

func (f *ForecastInfo) OK() bool {
	return f != nil && f.Error == ""
}

// SeasonInfo describes the agricultural season for a month.
type SeasonInfo struct {
	Current     string `json:"current_season"`
	Name        string `json:"season_name"`
	Description string `json:"description"`
	Month       int    `json:"month"`
}

// Passage is a retrieved document chunk.
type Passage struct {
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

// Response is the full answer payload for one query. Callers must check
// Error before relying on Answer.
type Response struct {
	Query           string        `json:"query"`
	Answer          string        `json:"answer"`
	LLMSource       string        `json:"llm_source"`
	Sources         []string      `json:"sources"`
	Location        *LocationInfo `json:"location"`
	Weather         *WeatherInfo  `json:"weather"`
	Forecast        *ForecastInfo `json:"forecast,omitempty"`
	Season          SeasonInfo    `json:"season"`
	Alerts          []string      `json:"alerts"`
	CropSuggestions []string      `json:"crop_suggestions"`
	Error           string        `json:"error,omitempty"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

// GuideItem is one card of an organic farming guide.
type GuideItem struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MarketRecord is one commodity arrival price row.
type MarketRecord struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	Grade       string `json:"grade"`
	ArrivalDate string `json:"arrival_date"`
	MinPrice    string `json:"min_price"`
	MaxPrice    string `json:"max_price"`
	ModalPrice  string `json:"modal_price"`
}
