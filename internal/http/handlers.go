package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/client"
	"github.com/kjstillabower/agri-advisor/internal/composer"
	"github.com/kjstillabower/agri-advisor/internal/lifecycle"
	"github.com/kjstillabower/agri-advisor/internal/models"
	"github.com/kjstillabower/agri-advisor/internal/observability"
	"github.com/kjstillabower/agri-advisor/internal/pipeline"
	"github.com/kjstillabower/agri-advisor/internal/traffic"
	"github.com/kjstillabower/agri-advisor/internal/validation"
)

// maxChatBody bounds the POST /api/chat body.
const maxChatBody = 64 << 10

var errNoAnswerer = errors.New("no answerer configured")

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string) pipeline.Result
}

// GuideGenerator produces organic farming guides.
type GuideGenerator interface {
	Generate(ctx context.Context, location string) []models.GuideItem
}

// PriceSource looks up commodity prices.
type PriceSource interface {
	Prices(ctx context.Context, q client.MarketQuery) client.Result[client.MarketPrices]
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability.
	CachePing func(ctx context.Context) error
	// IndexReady, when set, reports whether the document index can serve.
	IndexReady func() error
}

// Limits bounds handler inputs.
type Limits struct {
	QueryMaxLength    int
	LocationMinLength int
	LocationMaxLength int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	answerer         Answerer
	guide            GuideGenerator
	prices           PriceSource
	healthConfig     *HealthConfig
	limits           Limits
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. guide and prices may be nil, in which
// case their routes answer 503.
func NewHandler(answerer Answerer, guide GuideGenerator, prices PriceSource, healthConfig *HealthConfig, limits Limits, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.LocationMinLength <= 0 {
		limits.LocationMinLength = 1
	}
	if limits.LocationMaxLength <= 0 {
		limits.LocationMaxLength = 100
	}
	return &Handler{
		answerer:     answerer,
		guide:        guide,
		prices:       prices,
		healthConfig: healthConfig,
		limits:       limits,
		logger:       logger,
	}
}

type chatRequest struct {
	Query string `json:"query"`
}

// PostChat handles POST /api/chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a query field")
		return
	}
	query, err := validation.ValidateQuery(req.Query, h.limits.QueryMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	res, err := h.answer(r.Context(), query)
	if err != nil {
		traffic.Record(traffic.Failed)
		loggerFrom(r, h.logger).Error("chat handler fault", zap.Error(err))
		writeJSON(w, http.StatusOK, models.Response{
			Query:     query,
			Answer:    pipeline.FaultAnswer,
			LLMSource: composer.SourceSystem,
			Sources:   []string{},
			Error:     err.Error(),
		})
		return
	}

	if res.Response.Error != "" {
		traffic.Record(traffic.Failed)
	} else {
		traffic.Record(traffic.Answered)
	}
	if res.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Payload)
}

// answer converts a pipeline panic into an error so the caller still gets
// a well-formed response.
func (h *Handler) answer(ctx context.Context, query string) (res pipeline.Result, err error) {
	if h.answerer == nil {
		return pipeline.Result{}, errNoAnswerer
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return h.answerer.Answer(ctx, query), nil
}

type guideResponse struct {
	Location string             `json:"location"`
	Guide    []models.GuideItem `json:"guide"`
}

// GetGuide handles GET /api/guide-region?location=X.
func (h *Handler) GetGuide(w http.ResponseWriter, r *http.Request) {
	location, err := validation.ValidateLocation(r.URL.Query().Get("location"), h.limits.LocationMinLength, h.limits.LocationMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}
	if h.guide == nil {
		writeError(w, r, http.StatusServiceUnavailable, "GUIDE_UNAVAILABLE", "guide generation is not configured")
		return
	}
	writeJSON(w, http.StatusOK, guideResponse{Location: location, Guide: h.guide.Generate(r.Context(), location)})
}

type marketError struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

// GetMarketPrice handles GET /api/market-price. Provider failures are
// reported in the body with status 200, like chat errors.
func (h *Handler) GetMarketPrice(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	state, err := validation.ValidateLocation(params.Get("state"), h.limits.LocationMinLength, h.limits.LocationMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_STATE", "state: "+err.Error())
		return
	}
	date, err := validation.ValidateArrivalDate(params.Get("arrival_date"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}
	if h.prices == nil {
		writeError(w, r, http.StatusServiceUnavailable, "MARKET_UNAVAILABLE", "market prices are not configured")
		return
	}

	res := h.prices.Prices(r.Context(), client.MarketQuery{
		State:       state,
		District:    params.Get("district"),
		Commodity:   params.Get("commodity"),
		ArrivalDate: date,
	})
	if !res.OK() {
		loggerFrom(r, h.logger).Debug("market price lookup failed", zap.Error(res.Err))
		writeJSON(w, http.StatusOK, marketError{Error: res.Err.Detail, ErrorKind: string(res.Err.Kind)})
		return
	}
	writeJSON(w, http.StatusOK, res.Value)
}

// GetRoot handles GET /.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Agricultural advisory API is running",
		"service": observability.ServiceName,
	})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.healthConfig != nil && h.healthConfig.IndexReady != nil {
		checks["documentIndex"] = checkStatus(h.healthConfig.IndexReady())
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		checks["cache"] = checkStatus(h.healthConfig.CachePing(r.Context()))
	}
	resp := map[string]interface{}{
		"status":        result.status,
		"service":       observability.ServiceName,
		"version":       "dev",
		"checks":        checks,
		"uptimeSeconds": int64(lifecycle.Uptime(time.Now()).Seconds()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, result.statusCode, resp)
}

func checkStatus(err error) string {
	if err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > degraded > overloaded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.IndexReady != nil && h.healthConfig.IndexReady() != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "index_unavailable"}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		failed, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(failed)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	if h.healthConfig.RateLimitRPS > 0 && h.healthConfig.OverloadWindow > 0 {
		threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// writeError writes the standard error envelope with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Code: code, Message: message, RequestID: observability.CorrelationID(r.Context())},
	})
}

func loggerFrom(r *http.Request, fallback *zap.Logger) *zap.Logger {
	return observability.LoggerFromContext(r.Context(), fallback)
}
