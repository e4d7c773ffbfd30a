package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

const defaultMarketURL = "https://api.data.gov.in/resource/35985678-0d79-46b4-9ed6-6f13308a1d24"

// MarketQuery filters commodity arrivals. State is required.
type MarketQuery struct {
	State       string
	District    string
	Commodity   string
	ArrivalDate string // DD/MM/YYYY
	Limit       int
}

// MarketPrices is a page of normalized price records.
type MarketPrices struct {
	Total   int                   `json:"total"`
	Records []models.MarketRecord `json:"records"`
}

// MarketClient reads daily mandi prices from the data.gov.in open data API.
type MarketClient struct {
	apiKey string
	url    string
	t      *transport
}

// NewMarketClient returns a client for the commodity price resource.
func NewMarketClient(cfg Config) *MarketClient {
	cfg = cfg.withDefaults(defaultMarketURL)
	return &MarketClient{
		apiKey: cfg.APIKey,
		url:    cfg.BaseURL,
		t:      newTransport("market", cfg),
	}
}

// Prices fetches records matching q.
func (c *MarketClient) Prices(ctx context.Context, q MarketQuery) Result[MarketPrices] {
	if c.apiKey == "" {
		return missingCredential[MarketPrices]("data.gov.in")
	}
	if strings.TrimSpace(q.State) == "" {
		return fail[MarketPrices]("Market price error", fmt.Errorf("%w: state is required", ErrRequestRejected))
	}
	if q.Limit <= 0 {
		q.Limit = 1000
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("filters[State]", q.State)
	if q.District != "" {
		params.Set("filters[District]", q.District)
	}
	if q.Commodity != "" {
		params.Set("filters[Commodity]", q.Commodity)
	}
	if q.ArrivalDate != "" {
		params.Set("filters[Arrival_Date]", q.ArrivalDate)
	}

	body, err := c.t.get(ctx, c.url+"?"+params.Encode())
	if err != nil {
		return fail[MarketPrices]("Failed to fetch data from external API", err)
	}
	if !gjson.ValidBytes(body) {
		return fail[MarketPrices]("Market price error", fmt.Errorf("%w: invalid JSON", ErrParse))
	}

	doc := gjson.ParseBytes(body)
	out := MarketPrices{Records: []models.MarketRecord{}}
	doc.Get("records").ForEach(func(_, rec gjson.Result) bool {
		out.Records = append(out.Records, models.MarketRecord{
			State:       field(rec, "State", "state"),
			District:    field(rec, "District", "district"),
			Market:      field(rec, "Market", "market"),
			Commodity:   field(rec, "Commodity", "commodity"),
			Variety:     field(rec, "Variety", "variety"),
			Grade:       field(rec, "Grade", "grade"),
			ArrivalDate: field(rec, "Arrival_Date", "arrival_date"),
			MinPrice:    field(rec, "Min_Price", "Min_x0020_Price", "min_price"),
			MaxPrice:    field(rec, "Max_Price", "Max_x0020_Price", "max_price"),
			ModalPrice:  field(rec, "Modal_Price", "Modal_x0020_Price", "modal_price"),
		})
		return true
	})
	out.Total = int(doc.Get("total").Int())
	if out.Total == 0 {
		out.Total = len(out.Records)
	}
	return ok(out)
}

// field returns the first present key; the resource has used several
// spellings for the same column.
func field(rec gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := rec.Get(k); v.Exists() {
			return v.String()
		}
	}
	return ""
}
