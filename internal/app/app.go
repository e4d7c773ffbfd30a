// Package app builds the service object graph from configuration. Both the
// HTTP service and the CLI use it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/cache"
	"github.com/kjstillabower/agri-advisor/internal/circuitbreaker"
	"github.com/kjstillabower/agri-advisor/internal/classifier"
	"github.com/kjstillabower/agri-advisor/internal/client"
	"github.com/kjstillabower/agri-advisor/internal/composer"
	"github.com/kjstillabower/agri-advisor/internal/config"
	"github.com/kjstillabower/agri-advisor/internal/guide"
	"github.com/kjstillabower/agri-advisor/internal/ingest"
	"github.com/kjstillabower/agri-advisor/internal/llm"
	"github.com/kjstillabower/agri-advisor/internal/observability"
	"github.com/kjstillabower/agri-advisor/internal/pipeline"
	"github.com/kjstillabower/agri-advisor/internal/retriever"
)

// Container holds the wired components.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Index    *retriever.Index
	Cache    cache.Store
	Locator  *client.GeoapifyClient
	Weather  *client.OpenWeatherClient
	Market   *client.MarketClient
	Pipeline *pipeline.Orchestrator
	Guide    *guide.Generator

	closers []func() error
}

// Build wires every component. Only configuration mistakes fail: an index
// that cannot be opened is logged and leaves Index nil, so queries answer
// with the index error instead of the process refusing to start.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{Config: cfg, Logger: logger}

	rules := classifier.DefaultRules()
	if cfg.ClassifierRulesFile != "" {
		var err error
		rules, err = classifier.LoadRules(cfg.ClassifierRulesFile)
		if err != nil {
			return nil, err
		}
	}

	c.Locator = client.NewGeoapifyClient(c.gatewayConfig("geoapify", cfg.Geoapify))
	c.Weather = client.NewOpenWeatherClient(c.gatewayConfig("openweather", cfg.OpenWeather))
	c.Market = client.NewMarketClient(c.gatewayConfig("market", cfg.Market))

	store, err := cache.New(cache.Options{
		Backend:               cfg.CacheBackend,
		TTL:                   cfg.CacheTTL,
		LRUSize:               cfg.CacheLRUSize,
		Dir:                   cfg.CacheDir,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      cfg.MemcachedTimeout,
		MemcachedMaxIdleConns: cfg.MemcachedMaxIdleConns,
		RedisAddr:             cfg.RedisAddr,
		RedisPassword:         cfg.RedisPassword,
		RedisDB:               cfg.RedisDB,
		RedisTimeout:          cfg.RedisTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("cache backend %s: %w", cfg.CacheBackend, err)
	}
	c.Cache = store
	if closer, ok := store.(cache.Closer); ok {
		c.closers = append(c.closers, closer.Close)
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend), zap.Duration("ttl", cfg.CacheTTL))

	threshold := cfg.Threshold
	index, err := retriever.Open(retriever.Config{
		Dir:        cfg.IndexDir,
		Collection: cfg.Collection,
		TopK:       cfg.TopK,
		Threshold:  &threshold,
		Embedding: retriever.EmbeddingConfig{
			Provider: cfg.EmbeddingProvider,
			Model:    cfg.EmbeddingModel,
			BaseURL:  cfg.EmbeddingURL,
			APIKey:   cfg.EmbeddingAPIKey,
		},
	}, logger)
	switch {
	case errors.Is(err, retriever.ErrIndexUnavailable):
		logger.Error("document index unavailable", zap.Error(err))
	case err != nil:
		return nil, err
	default:
		c.Index = index
		logger.Info("document index opened", zap.String("dir", cfg.IndexDir), zap.Int("chunks", index.Count()))
	}

	primary := llm.Guard(llm.NewChatGenerator(llm.Options{
		APIKey:      cfg.Primary.APIKey,
		Model:       cfg.Primary.Model,
		BaseURL:     cfg.Primary.BaseURL,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}), "primary", c.modelBreaker("llm_primary"), logger)

	gemini, err := llm.NewGeminiGenerator(ctx, llm.Options{
		APIKey:      cfg.Fallback.APIKey,
		Model:       cfg.Fallback.Model,
		BaseURL:     cfg.Fallback.BaseURL,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, gemini.Close)
	fallback := llm.Guard(gemini, "fallback", c.modelBreaker("llm_fallback"), logger)

	// Guides are longer than chat answers, so this client has no token cap.
	guideModel, err := llm.NewGeminiGenerator(ctx, llm.Options{
		APIKey:  cfg.Fallback.APIKey,
		Model:   cfg.Fallback.Model,
		BaseURL: cfg.Fallback.BaseURL,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, guideModel.Close)
	c.Guide = guide.New(llm.Guard(guideModel, "guide", c.modelBreaker("llm_guide"), logger), logger)

	deps := pipeline.Deps{
		Classifier: classifier.New(rules),
		Locator:    c.Locator,
		Weather:    c.Weather,
		Composer: composer.New(primary, fallback, composer.Options{
			MaxWords:          cfg.MaxWords,
			RejectLongAnswers: cfg.RejectLongAnswers,
		}, logger),
		Cache:  c.Cache,
		Logger: logger,
	}
	if c.Index != nil {
		deps.Index = c.Index
	}
	c.Pipeline = pipeline.New(deps, pipeline.Options{
		CacheTTL:      cfg.CacheTTL,
		ForecastDays:  cfg.ForecastDays,
		ParallelFetch: cfg.ParallelFetch,
		Coalesce:      cfg.Coalesce,
		SharedTimeout: cfg.RequestTimeout,
	})
	return c, nil
}

// BuildIndex populates the document index from the configured docs directory.
func (c *Container) BuildIndex(ctx context.Context, force bool) (ingest.Stats, error) {
	if c.Index == nil {
		return ingest.Stats{}, retriever.ErrIndexUnavailable
	}
	return ingest.Build(ctx, c.Index, nil, ingest.Options{
		DocsDir:      c.Config.DocsDir,
		ChunkSize:    c.Config.ChunkSize,
		ChunkOverlap: c.Config.ChunkOverlap,
		Force:        force,
	}, c.Logger)
}

// CachePing returns the cache reachability check, or nil when the backend
// has none or caching is disabled.
func (c *Container) CachePing() func(ctx context.Context) error {
	if p, ok := c.Cache.(cache.Pinger); ok {
		return p.Ping
	}
	return nil
}

// Close releases connections, reporting every failure.
func (c *Container) Close() error {
	var result *multierror.Error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (c *Container) gatewayConfig(component string, g config.GatewayConfig) client.Config {
	return client.Config{
		APIKey:         g.APIKey,
		BaseURL:        g.URL,
		Timeout:        g.Timeout,
		RetryAttempts:  c.Config.RetryAttempts,
		RetryBaseDelay: c.Config.RetryBaseDelay,
		RetryMaxDelay:  c.Config.RetryMaxDelay,
		Breaker:        c.breaker(component, client.BreakerFailure),
	}
}

func (c *Container) modelBreaker(component string) *circuitbreaker.CircuitBreaker {
	return c.breaker(component, llm.BreakerFailure)
}

// breaker returns nil when breakers are disabled; a nil breaker admits every call.
func (c *Container) breaker(component string, isFailure func(error) bool) *circuitbreaker.CircuitBreaker {
	if !c.Config.CircuitBreakerEnabled {
		return nil
	}
	observability.SetCircuitBreakerState(component, int(circuitbreaker.StateClosed))
	logger := c.Logger
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: c.Config.CircuitBreakerFailureThreshold,
		SuccessThreshold: c.Config.CircuitBreakerSuccessThreshold,
		Timeout:          c.Config.CircuitBreakerTimeout,
		Component:        component,
		IsFailure:        isFailure,
		OnStateChange: func(component string, from, to circuitbreaker.State) {
			observability.SetCircuitBreakerState(component, int(to))
			logger.Warn("circuit breaker state change",
				zap.String("component", component),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
