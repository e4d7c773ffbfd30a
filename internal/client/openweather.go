package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

const (
	defaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

	pointsPerDay    = 8 // 3-hourly
	maxForecastDays = 5
)

// dayOffsets are the three-hourly slots kept from each day of forecast.
var dayOffsets = map[int]bool{0: true, 3: true, 6: true}

// WeatherQuery selects a location by coordinates (preferred) or by name.
type WeatherQuery struct {
	Lat, Lon *float64
	Name     string
}

// ByCoordinates builds a coordinate query that keeps name as a fallback label.
func ByCoordinates(lat, lon float64, name string) WeatherQuery {
	return WeatherQuery{Lat: &lat, Lon: &lon, Name: name}
}

// ByName builds a query resolved by location name.
func ByName(name string) WeatherQuery {
	return WeatherQuery{Name: name}
}

// WeatherProvider fetches current conditions and forecasts.
type WeatherProvider interface {
	Current(ctx context.Context, q WeatherQuery) Result[models.WeatherInfo]
	Forecast(ctx context.Context, name string, days int) Result[models.ForecastInfo]
}

// OpenWeatherClient talks to the OpenWeatherMap 2.5 API.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	cfg     Config
	t       *transport
}

// NewOpenWeatherClient returns a client rooted at cfg.BaseURL
// (default https://api.openweathermap.org/data/2.5).
func NewOpenWeatherClient(cfg Config) *OpenWeatherClient {
	cfg = cfg.withDefaults(defaultOpenWeatherURL)
	return &OpenWeatherClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		t:       newTransport("openweather", cfg),
	}
}

type currentResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

// Current returns current conditions, preferring coordinates when set.
func (c *OpenWeatherClient) Current(ctx context.Context, q WeatherQuery) Result[models.WeatherInfo] {
	if c.apiKey == "" {
		return missingCredential[models.WeatherInfo]("openweather")
	}

	params := url.Values{}
	switch {
	case q.Lat != nil && q.Lon != nil:
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	case strings.TrimSpace(q.Name) != "":
		params.Set("q", strings.TrimSpace(q.Name))
	default:
		return fail[models.WeatherInfo]("Weather API error", fmt.Errorf("%w: no coordinates or location name", ErrRequestRejected))
	}

	body, err := c.t.get(ctx, c.endpoint("weather", params))
	if err != nil {
		return fail[models.WeatherInfo]("Weather API error", err)
	}

	var apiResp currentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fail[models.WeatherInfo]("Weather data error", fmt.Errorf("%w: %v", ErrParse, err))
	}
	return ok(mapCurrent(apiResp, q.Name))
}

// Forecast returns up to three points per day for the next days (1-5).
func (c *OpenWeatherClient) Forecast(ctx context.Context, name string, days int) Result[models.ForecastInfo] {
	if c.apiKey == "" {
		return missingCredential[models.ForecastInfo]("openweather")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fail[models.ForecastInfo]("Forecast API error", fmt.Errorf("%w: location name required", ErrRequestRejected))
	}
	if days <= 0 {
		days = 3
	}
	if days > maxForecastDays {
		days = maxForecastDays
	}

	params := url.Values{}
	params.Set("q", name)
	body, err := c.t.get(ctx, c.endpoint("forecast", params))
	if err != nil {
		return fail[models.ForecastInfo]("Forecast API error", err)
	}

	var apiResp forecastResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fail[models.ForecastInfo]("Forecast data error", fmt.Errorf("%w: %v", ErrParse, err))
	}
	return ok(mapForecast(apiResp, name, days))
}

// ValidateAPIKey probes the API with a fixed city.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: openweather API key not configured", ErrMissingCredential)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", "Delhi")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("weather", params), nil)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()
	return statusError(resp.StatusCode)
}

func (c *OpenWeatherClient) endpoint(path string, params url.Values) string {
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	return c.baseURL + "/" + path + "?" + params.Encode()
}

func mapCurrent(r currentResponse, fallbackName string) models.WeatherInfo {
	conditions := ""
	if len(r.Weather) > 0 {
		conditions = r.Weather[0].Main
		if r.Weather[0].Description != "" {
			conditions = r.Weather[0].Description
		}
	}
	name := r.Name
	if name == "" {
		name = fallbackName
	}
	return models.WeatherInfo{
		Location:    name,
		Temperature: r.Main.Temp,
		FeelsLike:   r.Main.FeelsLike,
		Humidity:    r.Main.Humidity,
		Conditions:  conditions,
		WindSpeed:   r.Wind.Speed,
		Pressure:    r.Main.Pressure,
		Visibility:  r.Visibility,
	}
}

// mapForecast keeps the first days*8 three-hourly points and samples three
// of every eight (slots 0, 3 and 6).
func mapForecast(r forecastResponse, fallbackName string, days int) models.ForecastInfo {
	limit := days * pointsPerDay
	if limit > len(r.List) {
		limit = len(r.List)
	}
	points := make([]models.ForecastPoint, 0, days*len(dayOffsets))
	for i := 0; i < limit; i++ {
		if !dayOffsets[i%pointsPerDay] {
			continue
		}
		item := r.List[i]
		cond := ""
		if len(item.Weather) > 0 {
			cond = item.Weather[0].Description
		}
		points = append(points, models.ForecastPoint{
			DateTime:    time.Unix(item.Dt, 0).UTC().Format("2006-01-02 15:04"),
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			Conditions:  cond,
			Humidity:    item.Main.Humidity,
		})
	}
	name := r.City.Name
	if name == "" {
		name = fallbackName
	}
	return models.ForecastInfo{
		Location:  name,
		Country:   r.City.Country,
		Forecasts: points,
	}
}
