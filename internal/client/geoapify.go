package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

const (
	defaultGeoapifyURL = "https://api.geoapify.com/v1/ipinfo"

	// SourceIP tags locations resolved from the caller's IP address.
	SourceIP = "IP geolocation"
)

// Locator resolves the caller's location.
type Locator interface {
	Locate(ctx context.Context) Result[models.LocationInfo]
}

// GeoapifyClient resolves the server's public IP to a location.
type GeoapifyClient struct {
	apiKey string
	url    string
	t      *transport
}

// NewGeoapifyClient returns a client for the Geoapify IP info API.
func NewGeoapifyClient(cfg Config) *GeoapifyClient {
	cfg = cfg.withDefaults(defaultGeoapifyURL)
	return &GeoapifyClient{
		apiKey: cfg.APIKey,
		url:    cfg.BaseURL,
		t:      newTransport("geoapify", cfg),
	}
}

// Locate looks up the location of the calling host.
func (c *GeoapifyClient) Locate(ctx context.Context) Result[models.LocationInfo] {
	if c.apiKey == "" {
		return missingCredential[models.LocationInfo]("geoapify")
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return fail[models.LocationInfo]("Location detection error", fmt.Errorf("invalid API URL: %w", err))
	}
	q := u.Query()
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	body, err := c.t.get(ctx, u.String())
	if err != nil {
		return fail[models.LocationInfo]("Failed to detect location", err)
	}
	if !gjson.ValidBytes(body) {
		return fail[models.LocationInfo]("Location detection error", fmt.Errorf("%w: invalid JSON", ErrParse))
	}

	doc := gjson.ParseBytes(body)
	loc := models.LocationInfo{
		City:      doc.Get("city.name").String(),
		State:     doc.Get("state.name").String(),
		Country:   doc.Get("country.name").String(),
		Latitude:  doc.Get("location.latitude").Float(),
		Longitude: doc.Get("location.longitude").Float(),
		Source:    SourceIP,
	}
	if loc.City == "" && loc.Country == "" {
		return fail[models.LocationInfo]("Location detection error", fmt.Errorf("%w: no location in response", ErrNotFound))
	}
	return ok(loc)
}
