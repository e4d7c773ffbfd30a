package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/agri-advisor/internal/observability"
	"github.com/kjstillabower/agri-advisor/internal/traffic"
)

func TestCorrelationIDMiddleware_Propagated(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var gotID string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.New(core)))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		gotID = observability.CorrelationID(r.Context())
		observability.LoggerFromContext(r.Context(), nil).Info("inside")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Correlation-ID", "test-correlation-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "test-correlation-123" {
		t.Errorf("X-Correlation-ID = %q, want test-correlation-123", got)
	}
	if gotID != "test-correlation-123" {
		t.Errorf("context correlation ID = %q, want test-correlation-123", gotID)
	}
	entries := logs.FilterField(zap.String("correlation_id", "test-correlation-123")).All()
	if len(entries) != 1 {
		t.Errorf("log entries with correlation_id = %d, want 1", len(entries))
	}
}

func TestCorrelationIDMiddleware_Generated(t *testing.T) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if len(w.Header().Get("X-Correlation-ID")) != 36 {
		t.Errorf("generated X-Correlation-ID = %q, want a UUID", w.Header().Get("X-Correlation-ID"))
	}
}

func TestGetRoute_UsesTemplate(t *testing.T) {
	var route string
	router := mux.NewRouter()
	router.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		route = getRoute(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	if route != "/api/chat" {
		t.Errorf("getRoute() = %q, want /api/chat", route)
	}
	if got := getRoute(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != "unmatched" {
		t.Errorf("getRoute() without route = %q, want unmatched", got)
	}
}

func TestStatusCodeString(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 429: "4xx", 503: "5xx"}
	for code, want := range tests {
		if got := statusCodeString(code); got != want {
			t.Errorf("statusCodeString(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	h := TimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !hasDeadline {
		t.Fatal("request context has no deadline")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline too far in the future: %v", deadline)
	}

	h = TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	if hasDeadline {
		t.Error("TimeoutMiddleware(0) set a deadline")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	traffic.Reset()
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	router := NewRouter(NewHandler(&fakeAnswerer{resp: wheatResponse}, nil, nil, nil, Limits{}, nil),
		RouterConfig{Limiter: limiter}, zap.NewNop())

	first := doRequest(t, router, http.MethodPost, "/api/chat", `{"query":"best fertilizer for wheat"}`)
	second := doRequest(t, router, http.MethodPost, "/api/chat", `{"query":"best fertilizer for wheat"}`)

	if first.Code != http.StatusOK {
		t.Errorf("first status = %d, want 200", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if code := decodeError(t, second).Code; code != "RATE_LIMITED" {
		t.Errorf("error code = %q, want RATE_LIMITED", code)
	}
	if got := traffic.DenialCount(time.Minute); got != 1 {
		t.Errorf("DenialCount() = %d, want 1", got)
	}

	// Health and metrics are not rate limited.
	if w := doRequest(t, router, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
}

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	called := false
	h := RateLimitMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called with nil limiter")
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(NewHandler(&fakeAnswerer{}, nil, nil, nil, Limits{}, nil))
	w := doRequest(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", w.Code)
	}
}
