package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/agri-advisor/internal/observability"
)

// RouterConfig holds the per-route middleware settings.
type RouterConfig struct {
	// RequestTimeout bounds /api handlers; 0 disables it.
	RequestTimeout time.Duration
	// Limiter throttles /api; nil disables rate limiting.
	Limiter *rate.Limiter
}

// NewRouter registers all routes on a gorilla/mux router.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/", h.GetRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/chat", h.PostChat).Methods(http.MethodPost)
	api.HandleFunc("/guide-region", h.GetGuide).Methods(http.MethodGet)
	api.HandleFunc("/market-price", h.GetMarketPrice).Methods(http.MethodGet)
	return router
}
