package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestMetrics_Usable verifies that all Prometheus metrics can be used without
// panic, ensuring label dimensions match usage across packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("POST", "/api/chat", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("POST", "/api/chat").Observe(1.2)
	GatewayCallsTotal.WithLabelValues("openweather", "success").Inc()
	GatewayDuration.WithLabelValues("geoapify", "server_error").Observe(0.3)
	GatewayRetriesTotal.WithLabelValues("openweather").Inc()
	LLMCallsTotal.WithLabelValues("primary", "success").Inc()
	LLMDuration.WithLabelValues("fallback").Observe(2)
	LLMFallbackTotal.WithLabelValues("poor_answer").Inc()
	QueriesTotal.WithLabelValues("template").Inc()
	CacheLookupsTotal.WithLabelValues("file", "hit").Inc()
	RetrievedPassages.Observe(3)
	RetrievalErrorsTotal.Inc()
	SetCircuitBreakerState("llm_primary", 1)
	RegisterTrafficGauges(time.Minute)
	RegisterTrafficGauges(time.Minute)
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	QueriesTotal.WithLabelValues("refusal").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "queriesTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
