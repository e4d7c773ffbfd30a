package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/agri-advisor/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Chat requests include model latency, expect seconds.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Outbound provider calls by gateway (geoapify, openweather, market) and status.
	GatewayCallsTotal *prometheus.CounterVec

	// Outbound provider latency. Watch for: p95 close to the gateway timeout.
	GatewayDuration *prometheus.HistogramVec

	// Retries per gateway. Watch for: high retries = unstable upstream.
	GatewayRetriesTotal *prometheus.CounterVec

	// Language model calls by model role (primary, fallback, guide) and outcome.
	LLMCallsTotal *prometheus.CounterVec

	// Language model latency by role.
	LLMDuration *prometheus.HistogramVec

	// Fallbacks by reason (poor_answer, primary_error). Watch for: primary model regressions.
	LLMFallbackTotal *prometheus.CounterVec

	// Answered queries by answer path (refusal, template, primary, fallback, error).
	QueriesTotal *prometheus.CounterVec

	// Cache lookups by result (hit, miss, error).
	CacheLookupsTotal *prometheus.CounterVec

	// Passages kept after the similarity threshold.
	RetrievedPassages prometheus.Histogram

	// Retrieval failures (index unavailable, embedding error).
	RetrievalErrorsTotal prometheus.Counter

	// Circuit breaker state per component: 0=closed, 1=open, 2=half_open.
	CircuitBreakerState *prometheus.GaugeVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	trafficGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	GatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewayCallsTotal",
			Help: "Total number of outbound provider calls",
		},
		[]string{"gateway", "status"},
	)
	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatewayDurationSeconds",
			Help:    "Outbound provider latency in seconds (per attempt)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway", "status"},
	)
	GatewayRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewayRetriesTotal",
			Help: "Total number of outbound provider retries",
		},
		[]string{"gateway"},
	)
	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmCallsTotal",
			Help: "Total number of language model calls",
		},
		[]string{"role", "outcome"},
	)
	LLMDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmDurationSeconds",
			Help:    "Language model latency in seconds",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"role"},
	)
	LLMFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmFallbackTotal",
			Help: "Total number of fallback model invocations",
		},
		[]string{"reason"},
	)
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queriesTotal",
			Help: "Total number of answered queries by answer path",
		},
		[]string{"path"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Response cache lookups by result",
		},
		[]string{"backend", "result"},
	)
	RetrievedPassages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrievedPassages",
			Help:    "Passages kept per query after the similarity threshold",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)
	RetrievalErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "retrievalErrorsTotal",
			Help: "Total number of failed document retrievals",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per component (0=closed, 1=open, 2=half_open)",
		},
		[]string{"component"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		GatewayCallsTotal, GatewayDuration, GatewayRetriesTotal,
		LLMCallsTotal, LLMDuration, LLMFallbackTotal,
		QueriesTotal, CacheLookupsTotal,
		RetrievedPassages, RetrievalErrorsTotal,
		CircuitBreakerState, RateLimitDeniedTotal,
	)
}

// RegisterTrafficGauges exposes the sliding-window counters used by /health.
func RegisterTrafficGauges(window time.Duration) {
	trafficGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// SetCircuitBreakerState records a breaker state value (see CircuitBreakerState).
func SetCircuitBreakerState(component string, state int) {
	CircuitBreakerState.WithLabelValues(component).Set(float64(state))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
