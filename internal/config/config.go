// Package config loads service configuration from config/{ENV_NAME}.yaml,
// config/secrets.yaml and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env. Provider
// keys may be empty; the affected gateway or model reports a config error
// when called.
type Config struct {
	Env string

	ServerPort   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	RequestTimeout    time.Duration
	QueryMaxLength    int
	LocationMinLength int
	LocationMaxLength int

	Geoapify     GatewayConfig
	OpenWeather  GatewayConfig
	Market       GatewayConfig
	ForecastDays int

	Primary        ModelConfig
	Fallback       ModelConfig
	LLMMaxTokens   int
	LLMTemperature float32
	LLMTimeout     time.Duration

	IndexDir          string
	Collection        string
	DocsDir           string
	TopK              int
	Threshold         float32
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingURL      string
	EmbeddingAPIKey   string
	ChunkSize         int
	ChunkOverlap      int
	BuildIndexOnStart bool

	ClassifierRulesFile string

	MaxWords          int
	RejectLongAnswers bool

	CacheBackend          string
	CacheTTL              time.Duration
	CacheDir              string
	CacheLRUSize          int
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisTimeout          time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	ParallelFetch bool
	Coalesce      bool
	WarmQueries   []string
	WarmTimeout   time.Duration
}

// GatewayConfig configures one external data provider.
type GatewayConfig struct {
	APIKey  string
	URL     string
	Timeout time.Duration
}

// ModelConfig configures one language model provider.
type ModelConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type gatewayFile struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

type modelFile struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type fileConfig struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`

	Request struct {
		Timeout           string `yaml:"timeout"`
		QueryMaxLength    int    `yaml:"query_max_length"`
		LocationMinLength int    `yaml:"location_min_length"`
		LocationMaxLength int    `yaml:"location_max_length"`
	} `yaml:"request"`

	Gateways struct {
		Geoapify     gatewayFile `yaml:"geoapify"`
		OpenWeather  gatewayFile `yaml:"openweather"`
		Market       gatewayFile `yaml:"market"`
		ForecastDays int         `yaml:"forecast_days"`
	} `yaml:"gateways"`

	LLM struct {
		Primary     modelFile `yaml:"primary"`
		Fallback    modelFile `yaml:"fallback"`
		MaxTokens   int       `yaml:"max_tokens"`
		Temperature *float32  `yaml:"temperature"`
		Timeout     string    `yaml:"timeout"`
	} `yaml:"llm"`

	Retrieval struct {
		IndexDir     string   `yaml:"index_dir"`
		Collection   string   `yaml:"collection"`
		DocsDir      string   `yaml:"docs_dir"`
		TopK         int      `yaml:"top_k"`
		Threshold    *float32 `yaml:"threshold"`
		ChunkSize    int      `yaml:"chunk_size"`
		ChunkOverlap *int     `yaml:"chunk_overlap"`
		BuildOnStart *bool    `yaml:"build_on_start"`
		Embedding    struct {
			Provider string `yaml:"provider"`
			Model    string `yaml:"model"`
			URL      string `yaml:"url"`
		} `yaml:"embedding"`
	} `yaml:"retrieval"`

	Classifier struct {
		RulesFile string `yaml:"rules_file"`
	} `yaml:"classifier"`

	Composer struct {
		MaxWords          int  `yaml:"max_words"`
		RejectLongAnswers bool `yaml:"reject_long_answers"`
	} `yaml:"composer"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Dir       string `yaml:"dir"`
		LRUSize   int    `yaml:"lru_size"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr    string `yaml:"addr"`
			DB      int    `yaml:"db"`
			Timeout string `yaml:"timeout"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Pipeline struct {
		ParallelFetch *bool    `yaml:"parallel_fetch"`
		Coalesce      *bool    `yaml:"coalesce"`
		WarmQueries   []string `yaml:"warm_queries"`
		WarmTimeout   string   `yaml:"warm_timeout"`
	} `yaml:"pipeline"`
}

type secretsFile struct {
	GroqAPIKey        string `yaml:"groq_api_key"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	GeoapifyAPIKey    string `yaml:"geoapify_api_key"`
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	DataGovAPIKey     string `yaml:"data_gov_api_key"`
	EmbeddingAPIKey   string `yaml:"embedding_api_key"`
	RedisPassword     string `yaml:"redis_password"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml under the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(filepath.Join(cwd, "config"))
}

// LoadFrom reads {ENV_NAME}.yaml and secrets.yaml from dir.
func LoadFrom(dir string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(dir, env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var sec secretsFile
	secretsData, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(secretsData, &sec); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	cfg := &Config{Env: env}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8000")
	cfg.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 10*time.Second)
	cfg.WriteTimeout = parseDuration(fc.Server.WriteTimeout, 90*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 75*time.Second)
	cfg.QueryMaxLength = positiveOr(fc.Request.QueryMaxLength, 1000)
	cfg.LocationMinLength = positiveOr(fc.Request.LocationMinLength, 1)
	cfg.LocationMaxLength = positiveOr(fc.Request.LocationMaxLength, 100)

	cfg.Geoapify = GatewayConfig{
		APIKey:  firstNonEmpty(os.Getenv("GEOAPIFY_API_KEY"), sec.GeoapifyAPIKey),
		URL:     strings.TrimSpace(fc.Gateways.Geoapify.URL),
		Timeout: parseDuration(fc.Gateways.Geoapify.Timeout, 10*time.Second),
	}
	cfg.OpenWeather = GatewayConfig{
		APIKey:  firstNonEmpty(os.Getenv("OPENWEATHER_API_KEY"), sec.OpenWeatherAPIKey),
		URL:     strings.TrimSpace(fc.Gateways.OpenWeather.URL),
		Timeout: parseDuration(fc.Gateways.OpenWeather.Timeout, 10*time.Second),
	}
	cfg.Market = GatewayConfig{
		APIKey:  firstNonEmpty(os.Getenv("DATA_GOV_API_KEY"), sec.DataGovAPIKey),
		URL:     strings.TrimSpace(fc.Gateways.Market.URL),
		Timeout: parseDuration(fc.Gateways.Market.Timeout, 15*time.Second),
	}
	cfg.ForecastDays = positiveOr(fc.Gateways.ForecastDays, 3)

	cfg.Primary = ModelConfig{
		APIKey:  firstNonEmpty(os.Getenv("GROQ_API_KEY"), sec.GroqAPIKey),
		Model:   strings.TrimSpace(fc.LLM.Primary.Model),
		BaseURL: strings.TrimSpace(fc.LLM.Primary.BaseURL),
	}
	cfg.Fallback = ModelConfig{
		APIKey:  firstNonEmpty(os.Getenv("GEMINI_API_KEY"), sec.GeminiAPIKey),
		Model:   strings.TrimSpace(fc.LLM.Fallback.Model),
		BaseURL: strings.TrimSpace(fc.LLM.Fallback.BaseURL),
	}
	cfg.LLMMaxTokens = positiveOr(fc.LLM.MaxTokens, 200)
	cfg.LLMTemperature = 0.3
	if fc.LLM.Temperature != nil {
		cfg.LLMTemperature = *fc.LLM.Temperature
	}
	cfg.LLMTimeout = parseDuration(fc.LLM.Timeout, 30*time.Second)

	cfg.IndexDir = firstNonEmpty(fc.Retrieval.IndexDir, "data/index")
	cfg.Collection = firstNonEmpty(fc.Retrieval.Collection, "agri_docs")
	cfg.DocsDir = firstNonEmpty(fc.Retrieval.DocsDir, "data/docs")
	cfg.TopK = positiveOr(fc.Retrieval.TopK, 5)
	cfg.Threshold = 0.5
	if fc.Retrieval.Threshold != nil {
		cfg.Threshold = *fc.Retrieval.Threshold
	}
	cfg.ChunkSize = positiveOr(fc.Retrieval.ChunkSize, 1000)
	cfg.ChunkOverlap = 200
	if fc.Retrieval.ChunkOverlap != nil {
		cfg.ChunkOverlap = *fc.Retrieval.ChunkOverlap
	}
	cfg.BuildIndexOnStart = boolOr(fc.Retrieval.BuildOnStart, true)
	cfg.EmbeddingProvider = strings.ToLower(firstNonEmpty(fc.Retrieval.Embedding.Provider, "ollama"))
	cfg.EmbeddingModel = strings.TrimSpace(fc.Retrieval.Embedding.Model)
	cfg.EmbeddingURL = strings.TrimSpace(fc.Retrieval.Embedding.URL)
	cfg.EmbeddingAPIKey = firstNonEmpty(os.Getenv("EMBEDDING_API_KEY"), sec.EmbeddingAPIKey)

	cfg.ClassifierRulesFile = strings.TrimSpace(fc.Classifier.RulesFile)

	cfg.MaxWords = positiveOr(fc.Composer.MaxWords, 150)
	cfg.RejectLongAnswers = fc.Composer.RejectLongAnswers

	cfg.CacheBackend = strings.ToLower(firstNonEmpty(os.Getenv("CACHE_BACKEND"), fc.Cache.Backend, "in_memory"))
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 24*time.Hour)
	cfg.CacheDir = firstNonEmpty(fc.Cache.Dir, "data/cache")
	cfg.CacheLRUSize = positiveOr(fc.Cache.LRUSize, 1000)
	cfg.MemcachedAddrs = firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = positiveOr(fc.Cache.Memcached.MaxIdleConns, 2)
	cfg.RedisAddr = firstNonEmpty(os.Getenv("REDIS_ADDR"), fc.Cache.Redis.Addr, "localhost:6379")
	cfg.RedisPassword = firstNonEmpty(os.Getenv("REDIS_PASSWORD"), sec.RedisPassword)
	cfg.RedisDB = fc.Cache.Redis.DB
	cfg.RedisTimeout = parseDuration(fc.Cache.Redis.Timeout, 500*time.Millisecond)

	cfg.RetryAttempts = positiveOr(fc.Reliability.RetryMaxAttempts, 3)
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS * 2
	}
	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = boolOr(cb.Enabled, true)
	cfg.CircuitBreakerFailureThreshold = positiveOr(cb.FailureThreshold, 5)
	cfg.CircuitBreakerSuccessThreshold = positiveOr(cb.SuccessThreshold, 2)
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 60*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 500*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = positiveOr(fc.Lifecycle.OverloadThresholdPct, 80)
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = positiveOr(fc.Lifecycle.DegradedErrorPct, 20)

	cfg.ParallelFetch = boolOr(fc.Pipeline.ParallelFetch, true)
	cfg.Coalesce = boolOr(fc.Pipeline.Coalesce, true)
	cfg.WarmQueries = fc.Pipeline.WarmQueries
	cfg.WarmTimeout = parseDuration(fc.Pipeline.WarmTimeout, 2*time.Minute)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

var errInvalid = errors.New("invalid configuration")

// validate reports every invalid value at once. A request timeout shorter
// than two sequential model calls is raised rather than rejected.
func validate(cfg *Config) error {
	var result *multierror.Error
	fail := func(format string, args ...interface{}) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]interface{}{errInvalid}, args...)...))
	}

	switch cfg.CacheBackend {
	case "in_memory", "file", "memcached", "redis", "none":
	default:
		fail("cache.backend must be in_memory, file, memcached, redis or none, got %q", cfg.CacheBackend)
	}
	switch cfg.EmbeddingProvider {
	case "ollama", "openai":
	default:
		fail("retrieval.embedding.provider must be ollama or openai, got %q", cfg.EmbeddingProvider)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		fail("retrieval.threshold must be within [0, 1], got %v", cfg.Threshold)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		fail("retrieval.chunk_overlap must be in [0, chunk_size), got %d", cfg.ChunkOverlap)
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		fail("llm.temperature must be within [0, 2], got %v", cfg.LLMTemperature)
	}
	if cfg.LocationMinLength > cfg.LocationMaxLength {
		fail("request.location_min_length %d exceeds location_max_length %d", cfg.LocationMinLength, cfg.LocationMaxLength)
	}

	if floor := 2*cfg.LLMTimeout + cfg.OpenWeather.Timeout; cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor
	}
	return result.ErrorOrNil()
}
