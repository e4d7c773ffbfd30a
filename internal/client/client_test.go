package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/agri-advisor/internal/circuitbreaker"
)

func testConfig(url string) Config {
	return Config{
		APIKey:         "test-api-key-12345",
		BaseURL:        url,
		Timeout:        2 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

func writeJSONBody(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func TestGeoapifyClient_Locate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apiKey"); got != "test-api-key-12345" {
			t.Errorf("apiKey = %q", got)
		}
		if got := r.Header.Get("X-Correlation-ID"); got != "corr-1" {
			t.Errorf("X-Correlation-ID = %q, want corr-1", got)
		}
		writeJSONBody(t, w, map[string]interface{}{
			"city":     map[string]interface{}{"name": "Pune"},
			"state":    map[string]interface{}{"name": "Maharashtra"},
			"country":  map[string]interface{}{"name": "India"},
			"location": map[string]interface{}{"latitude": 18.52, "longitude": 73.85},
		})
	}))
	defer server.Close()

	c := NewGeoapifyClient(testConfig(server.URL))
	ctx := withCorrelation(context.Background(), "corr-1")
	res := c.Locate(ctx)
	if !res.OK() {
		t.Fatalf("Locate() error = %v", res.Err)
	}
	got := res.Value
	if got.City != "Pune" || got.State != "Maharashtra" || got.Country != "India" {
		t.Errorf("Locate() = %+v", got)
	}
	if got.Latitude != 18.52 || got.Longitude != 73.85 {
		t.Errorf("Locate() coordinates = (%v, %v)", got.Latitude, got.Longitude)
	}
	if got.Source != SourceIP {
		t.Errorf("Locate() source = %q, want %q", got.Source, SourceIP)
	}
}

// TestGeoapifyClient_Locate_Failures verifies every failure becomes a typed
// error marker rather than an error return.
func TestGeoapifyClient_Locate_Failures(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		status     int
		body       string
		wantKind   ErrorKind
		wantDetail string
	}{
		{"missing key", "", 200, `{}`, KindConfig, "geoapify API key not configured"},
		{"unauthorized", "k", 401, `{}`, KindAuth, "Failed to detect location"},
		{"server error", "k", 500, `{}`, KindUpstream, "HTTP 500"},
		{"invalid json", "k", 200, `not json`, KindParse, "invalid JSON"},
		{"empty payload", "k", 200, `{}`, KindNotFound, "no location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cfg := testConfig(server.URL)
			cfg.APIKey = tt.apiKey
			res := NewGeoapifyClient(cfg).Locate(context.Background())
			if res.OK() {
				t.Fatal("Locate() OK = true, want failure")
			}
			if res.Kind() != tt.wantKind {
				t.Errorf("Locate() kind = %q, want %q", res.Kind(), tt.wantKind)
			}
			if !strings.Contains(res.Err.Detail, tt.wantDetail) {
				t.Errorf("Locate() detail = %q, want substring %q", res.Err.Detail, tt.wantDetail)
			}
		})
	}
}

func TestOpenWeatherClient_Current_ByName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("path = %q, want /weather", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Mumbai" || q.Get("units") != "metric" || q.Get("appid") == "" {
			t.Errorf("query = %v", q)
		}
		writeJSONBody(t, w, map[string]interface{}{
			"name": "Mumbai",
			"main": map[string]interface{}{"temp": 31.5, "feels_like": 36.2, "humidity": 74, "pressure": 1008},
			"weather": []map[string]interface{}{
				{"main": "Haze", "description": "haze"},
			},
			"wind":       map[string]interface{}{"speed": 4.1},
			"visibility": 3000,
		})
	}))
	defer server.Close()

	res := NewOpenWeatherClient(testConfig(server.URL)).Current(context.Background(), ByName("Mumbai"))
	if !res.OK() {
		t.Fatalf("Current() error = %v", res.Err)
	}
	w := res.Value
	if w.Location != "Mumbai" || w.Temperature != 31.5 || w.Humidity != 74 || w.Conditions != "haze" {
		t.Errorf("Current() = %+v", w)
	}
	if w.Pressure != 1008 || w.WindSpeed != 4.1 || w.FeelsLike != 36.2 || w.Visibility != 3000 {
		t.Errorf("Current() secondary fields = %+v", w)
	}
}

// TestOpenWeatherClient_Current_PrefersCoordinates verifies lat/lon are sent
// instead of the name when both are present.
func TestOpenWeatherClient_Current_PrefersCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "18.52" || q.Get("lon") != "73.85" {
			t.Errorf("lat/lon = %q/%q", q.Get("lat"), q.Get("lon"))
		}
		if q.Has("q") {
			t.Errorf("q should not be sent with coordinates, got %q", q.Get("q"))
		}
		writeJSONBody(t, w, map[string]interface{}{"main": map[string]interface{}{"temp": 22.0}})
	}))
	defer server.Close()

	res := NewOpenWeatherClient(testConfig(server.URL)).Current(context.Background(), ByCoordinates(18.52, 73.85, "Pune"))
	if !res.OK() {
		t.Fatalf("Current() error = %v", res.Err)
	}
	if res.Value.Location != "Pune" {
		t.Errorf("Current() location = %q, want fallback name Pune", res.Value.Location)
	}
}

// TestOpenWeatherClient_Current_RetriesUpstream verifies 5xx responses are
// retried and a later success is returned.
func TestOpenWeatherClient_Current_RetriesUpstream(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSONBody(t, w, map[string]interface{}{"name": "Delhi", "main": map[string]interface{}{"temp": 18.0}})
	}))
	defer server.Close()

	res := NewOpenWeatherClient(testConfig(server.URL)).Current(context.Background(), ByName("Delhi"))
	if !res.OK() {
		t.Fatalf("Current() error = %v", res.Err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

// TestOpenWeatherClient_Current_NoRetryOnNotFound verifies 404 is terminal.
func TestOpenWeatherClient_Current_NoRetryOnNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	res := NewOpenWeatherClient(testConfig(server.URL)).Current(context.Background(), ByName("Atlantis"))
	if res.Kind() != KindNotFound {
		t.Errorf("Current() kind = %q, want not_found", res.Kind())
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

// TestOpenWeatherClient_Current_Timeout verifies a slow provider resolves to
// a timeout marker within the configured bound.
func TestOpenWeatherClient_Current_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.RetryAttempts = 1

	start := time.Now()
	res := NewOpenWeatherClient(cfg).Current(context.Background(), ByName("Delhi"))
	if res.Kind() != KindTimeout {
		t.Errorf("Current() kind = %q, want timeout (detail %v)", res.Kind(), res.Err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Current() took %v, want bounded by timeout", elapsed)
	}
}

func TestOpenWeatherClient_Current_MissingInput(t *testing.T) {
	res := NewOpenWeatherClient(testConfig("http://127.0.0.1:0")).Current(context.Background(), WeatherQuery{})
	if res.Kind() != KindRejected {
		t.Errorf("Current() kind = %q, want rejected", res.Kind())
	}
}

// TestOpenWeatherClient_Forecast_SamplesThreePerDay verifies the forecast is
// limited to the requested days and reduced to three points per day.
func TestOpenWeatherClient_Forecast_SamplesThreePerDay(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	var list []map[string]interface{}
	for i := 0; i < 40; i++ {
		list = append(list, map[string]interface{}{
			"dt":      base.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			"main":    map[string]interface{}{"temp": float64(i), "feels_like": float64(i), "humidity": 50},
			"weather": []map[string]interface{}{{"description": "clear sky"}},
		})
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("path = %q, want /forecast", r.URL.Path)
		}
		writeJSONBody(t, w, map[string]interface{}{
			"list": list,
			"city": map[string]interface{}{"name": "Jaipur", "country": "IN"},
		})
	}))
	defer server.Close()

	res := NewOpenWeatherClient(testConfig(server.URL)).Forecast(context.Background(), "Jaipur", 2)
	if !res.OK() {
		t.Fatalf("Forecast() error = %v", res.Err)
	}
	fc := res.Value
	if fc.Location != "Jaipur" || fc.Country != "IN" {
		t.Errorf("Forecast() location = %q/%q", fc.Location, fc.Country)
	}
	if len(fc.Forecasts) != 6 {
		t.Fatalf("Forecast() points = %d, want 6", len(fc.Forecasts))
	}
	wantTemps := []float64{0, 3, 6, 8, 11, 14}
	for i, want := range wantTemps {
		if fc.Forecasts[i].Temperature != want {
			t.Errorf("Forecasts[%d].Temperature = %v, want %v", i, fc.Forecasts[i].Temperature, want)
		}
	}
	if fc.Forecasts[1].DateTime != "2025-01-10 09:00" {
		t.Errorf("Forecasts[1].DateTime = %q", fc.Forecasts[1].DateTime)
	}
}

// TestOpenWeatherClient_BreakerOpens verifies repeated upstream failures open
// the breaker and subsequent calls short-circuit with circuit_open.
func TestOpenWeatherClient_BreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RetryAttempts = 1
	cfg.Breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		Component:        "openweather",
		IsFailure:        BreakerFailure,
	})
	c := NewOpenWeatherClient(cfg)
	ctx := context.Background()

	_ = c.Current(ctx, ByName("Delhi"))
	_ = c.Current(ctx, ByName("Delhi"))
	res := c.Current(ctx, ByName("Delhi"))
	if res.Kind() != KindCircuitOpen {
		t.Errorf("Current() kind = %q, want circuit_open", res.Kind())
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestMarketClient_Prices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("filters[State]") != "Punjab" || q.Get("filters[Commodity]") != "Wheat" {
			t.Errorf("filters = %v", q)
		}
		if q.Get("format") != "json" || q.Get("limit") != "1000" {
			t.Errorf("format/limit = %q/%q", q.Get("format"), q.Get("limit"))
		}
		if q.Has("filters[District]") {
			t.Error("district filter sent although empty")
		}
		_, _ = w.Write([]byte(`{"total": 1, "records": [{"State":"Punjab","District":"Ludhiana","Market":"Khanna","Commodity":"Wheat","Variety":"Dara","Grade":"FAQ","Arrival_Date":"01/02/2025","Min_x0020_Price":"2275","Max_x0020_Price":"2300","Modal_x0020_Price":"2290"}]}`))
	}))
	defer server.Close()

	res := NewMarketClient(testConfig(server.URL)).Prices(context.Background(), MarketQuery{State: "Punjab", Commodity: "Wheat"})
	if !res.OK() {
		t.Fatalf("Prices() error = %v", res.Err)
	}
	if res.Value.Total != 1 || len(res.Value.Records) != 1 {
		t.Fatalf("Prices() = %+v", res.Value)
	}
	rec := res.Value.Records[0]
	if rec.Market != "Khanna" || rec.ModalPrice != "2290" || rec.ArrivalDate != "01/02/2025" {
		t.Errorf("record = %+v", rec)
	}
}

func TestMarketClient_Prices_RequiresState(t *testing.T) {
	res := NewMarketClient(testConfig("http://127.0.0.1:0")).Prices(context.Background(), MarketQuery{})
	if res.Kind() != KindRejected {
		t.Errorf("Prices() kind = %q, want rejected", res.Kind())
	}
}
