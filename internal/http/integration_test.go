//go:build integration
// +build integration

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/cache"
	"github.com/kjstillabower/agri-advisor/internal/client"
	"github.com/kjstillabower/agri-advisor/internal/composer"
	"github.com/kjstillabower/agri-advisor/internal/models"
	"github.com/kjstillabower/agri-advisor/internal/pipeline"
	"github.com/kjstillabower/agri-advisor/internal/testhelpers"
)

type emptyIndex struct{}

func (emptyIndex) Ready() error                                    { return nil }
func (emptyIndex) Search(context.Context, string) []models.Passage { return nil }

type cannedComposer struct{}

func (cannedComposer) Compose(ctx context.Context, in composer.PromptInput) (composer.Answer, error) {
	return composer.Answer{Text: "Use well rotted manure before sowing.", Source: "canned", Path: composer.PathPrimary}, nil
}

// setupIntegrationRouter wires live weather and location gateways and the
// configured cache backend behind the real router.
func setupIntegrationRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testhelpers.GetIntegrationConfig(t)

	store, err := cache.New(cache.Options{
		Backend:        cfg.CacheBackend,
		TTL:            time.Minute,
		MemcachedAddrs: cfg.MemcachedAddr,
		RedisAddr:      cfg.RedisAddr,
	})
	if err != nil {
		t.Skipf("cache backend %s unavailable: %v", cfg.CacheBackend, err)
	}
	if c, ok := store.(cache.Closer); ok {
		t.Cleanup(func() { _ = c.Close() })
	}

	orch := pipeline.New(pipeline.Deps{
		Locator:  client.NewGeoapifyClient(client.Config{APIKey: cfg.GeoapifyKey, Timeout: 5 * time.Second}),
		Weather:  testhelpers.SetupWeatherClient(cfg),
		Index:    emptyIndex{},
		Composer: cannedComposer{},
		Cache:    store,
	}, pipeline.Options{CacheTTL: time.Minute, ParallelFetch: true})

	return NewRouter(NewHandler(orch, nil, nil, nil, Limits{}, zap.NewNop()), RouterConfig{RequestTimeout: 20 * time.Second}, zap.NewNop())
}

func TestIntegration_ChatWeatherTemplate(t *testing.T) {
	router := setupIntegrationRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/chat", `{"query":"what is the weather in Mumbai"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp models.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.Answer, "Weather in ") {
		t.Errorf("answer = %q, want templated weather answer", resp.Answer)
	}
	if resp.LLMSource != "OpenWeather API" {
		t.Errorf("llm_source = %q, want OpenWeather API", resp.LLMSource)
	}
}

func TestIntegration_ChatCacheHit(t *testing.T) {
	router := setupIntegrationRouter(t)
	body := `{"query":"best fertilizer for wheat ` + time.Now().Format(time.RFC3339Nano) + `"}`

	first := doRequest(t, router, http.MethodPost, "/api/chat", body)
	second := doRequest(t, router, http.MethodPost, "/api/chat", body)

	if first.Header().Get("X-Cache") != "" {
		t.Errorf("first X-Cache = %q, want empty", first.Header().Get("X-Cache"))
	}
	if second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached body differs from first response")
	}
}
