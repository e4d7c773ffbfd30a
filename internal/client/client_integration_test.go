//go:build integration
// +build integration

package client

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestOpenWeatherClient_Current_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENWEATHER_API_KEY not set, skipping integration test")
	}

	c := NewOpenWeatherClient(Config{APIKey: apiKey, Timeout: 5 * time.Second, RetryAttempts: 2})
	ctx := context.Background()

	if err := c.ValidateAPIKey(ctx); err != nil {
		t.Fatalf("ValidateAPIKey() error = %v (key may not be activated yet)", err)
	}

	res := c.Current(ctx, ByName("Pune"))
	if !res.OK() {
		t.Fatalf("Current() error = %v", res.Err)
	}
	if res.Value.Location == "" {
		t.Error("Current() location is empty")
	}

	fc := c.Forecast(ctx, "Pune", 2)
	if !fc.OK() {
		t.Fatalf("Forecast() error = %v", fc.Err)
	}
	if len(fc.Value.Forecasts) != 6 {
		t.Errorf("Forecast() points = %d, want 6", len(fc.Value.Forecasts))
	}
}

func TestGeoapifyClient_Locate_Integration(t *testing.T) {
	apiKey := os.Getenv("GEOAPIFY_API_KEY")
	if apiKey == "" {
		t.Skip("GEOAPIFY_API_KEY not set, skipping integration test")
	}

	c := NewGeoapifyClient(Config{APIKey: apiKey, Timeout: 5 * time.Second})
	res := c.Locate(context.Background())
	if !res.OK() {
		t.Fatalf("Locate() error = %v", res.Err)
	}
	if res.Value.Country == "" {
		t.Error("Locate() country is empty")
	}
}
