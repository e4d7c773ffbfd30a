// Package pipeline sequences one query end to end: classification, gateway
// lookups, template answers, cache, retrieval, advisories and composition.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/agri-advisor/internal/advisory"
	"github.com/kjstillabower/agri-advisor/internal/cache"
	"github.com/kjstillabower/agri-advisor/internal/classifier"
	"github.com/kjstillabower/agri-advisor/internal/client"
	"github.com/kjstillabower/agri-advisor/internal/composer"
	"github.com/kjstillabower/agri-advisor/internal/models"
	"github.com/kjstillabower/agri-advisor/internal/observability"
	"github.com/kjstillabower/agri-advisor/internal/retriever"
	"github.com/kjstillabower/agri-advisor/internal/season"
)

const (
	// SourceQueryText tags locations named in the query itself.
	SourceQueryText = "query text"

	// FaultAnswer is returned when the answer could not be produced.
	FaultAnswer = "Sorry, I encountered an error processing your request."

	indexUnavailableError = "Failed to initialize document database"
	noDocumentsSource     = "No relevant documents found"
)

// Index is the retrieval dependency.
type Index interface {
	retriever.Searcher
	Ready() error
}

// Composer produces model answers.
type Composer interface {
	Compose(ctx context.Context, in composer.PromptInput) (composer.Answer, error)
}

// Deps are the collaborators of an Orchestrator. Cache may be nil.
type Deps struct {
	Classifier *classifier.Classifier
	Locator    client.Locator
	Weather    client.WeatherProvider
	Index      Index
	Composer   Composer
	Cache      cache.Store
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Options tune the pipeline.
type Options struct {
	CacheTTL      time.Duration
	ForecastDays  int
	ParallelFetch bool
	Coalesce      bool
	// SharedTimeout bounds a coalesced execution, which runs detached from
	// the cancellation of any single caller. 0 leaves it unbounded.
	SharedTimeout time.Duration
}

// Result is one answered query. Payload is the JSON encoding of Response;
// on a cache hit it is the stored bytes, unchanged.
type Result struct {
	Response models.Response
	Payload  []byte
	CacheHit bool
	Path     string
}

// Orchestrator answers queries. Safe for concurrent use.
type Orchestrator struct {
	deps  Deps
	opts  Options
	group singleflight.Group
}

// New returns an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Classifier == nil {
		deps.Classifier = classifier.NewDefault()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.ForecastDays <= 0 {
		opts.ForecastDays = 3
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// Answer runs the pipeline for query. Identical concurrent queries share one
// execution when coalescing is enabled. The shared execution ignores the
// callers' cancellation; a caller whose ctx ends first gets a fault response
// while the others still receive the answer.
func (o *Orchestrator) Answer(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if !o.opts.Coalesce {
		return o.answer(ctx, query)
	}
	ch := o.group.DoChan(query, func() (v interface{}, err error) {
		shared := context.WithoutCancel(ctx)
		if o.opts.SharedTimeout > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, o.opts.SharedTimeout)
			defer cancel()
		}
		// DoChan re-panics on its own goroutine, which nothing could recover.
		defer func() {
			if p := recover(); p != nil {
				v = o.fault(query, fmt.Errorf("panic: %v", p))
			}
		}()
		return o.answer(shared, query), nil
	})
	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return o.fault(query, ctx.Err())
	}
}

// fault is the response for a query that could not be processed at all.
func (o *Orchestrator) fault(query string, err error) Result {
	now := o.deps.Now()
	resp := newResponse(query, season.For(now), now)
	resp.Answer = FaultAnswer
	resp.LLMSource = composer.SourceSystem
	resp.Error = fmt.Sprintf("Error processing query: %v", err)
	return o.finish(resp, composer.PathError)
}

func newResponse(query string, s models.SeasonInfo, now time.Time) models.Response {
	return models.Response{
		Query:           query,
		Sources:         []string{},
		Season:          s,
		Alerts:          []string{},
		CropSuggestions: []string{},
		GeneratedAt:     now.UTC(),
	}
}

func (o *Orchestrator) answer(ctx context.Context, query string) Result {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, o.deps.Logger)
	now := o.deps.Now()
	currentSeason := season.For(now)
	intent := o.deps.Classifier.Classify(query)

	res := o.run(ctx, query, intent, currentSeason, now)
	observability.QueriesTotal.WithLabelValues(res.Path).Inc()
	logger.Info("query answered",
		zap.String("path", res.Path),
		zap.String("llm_source", res.Response.LLMSource),
		zap.Bool("cache_hit", res.CacheHit),
		zap.Duration("duration", time.Since(start)),
	)
	return res
}

func (o *Orchestrator) run(ctx context.Context, query string, intent classifier.Intent, currentSeason models.SeasonInfo, now time.Time) Result {
	base := newResponse(query, currentSeason, now)

	if !intent.Agricultural {
		base.Answer = composer.RefusalText
		base.LLMSource = composer.SourceRefusal
		return o.finish(base, composer.PathRefusal)
	}

	if o.deps.Index == nil || o.deps.Index.Ready() != nil {
		base.Error = indexUnavailableError
		return o.finish(base, composer.PathError)
	}

	var env environment
	if intent.NeedsLocation {
		env = o.fetch(ctx, intent)
	}
	base.Location, base.Weather, base.Forecast = env.location, env.weather, env.forecast

	if ans, ok := composer.Special(intent, env.location, env.weather, env.forecast); ok {
		base.Answer = ans.Text
		base.LLMSource = ans.Source
		return o.finish(base, ans.Path)
	}

	key := o.cacheKey(query, env)
	if payload, ok := o.cacheGet(ctx, key); ok {
		var cached models.Response
		if err := json.Unmarshal(payload, &cached); err == nil {
			return Result{Response: cached, Payload: payload, CacheHit: true, Path: "cache"}
		}
	}

	passages := o.deps.Index.Search(ctx, query)

	cropSeason := currentSeason
	if named, ok := season.Named(query); ok {
		cropSeason = named
	}
	base.Alerts = advisory.Alerts(env.weather, currentSeason)
	base.CropSuggestions = advisory.CropSuggestions(env.location, env.weather, cropSeason)

	ans, err := o.deps.Composer.Compose(ctx, composer.PromptInput{
		Query:    query,
		Passages: passages,
		Location: env.location,
		Weather:  env.weather,
		Season:   currentSeason,
		Alerts:   base.Alerts,
		Crops:    base.CropSuggestions,
	})
	if err != nil {
		base.Answer = FaultAnswer
		base.LLMSource = composer.SourceSystem
		base.Error = fmt.Sprintf("Error processing query: %v", err)
		return o.finish(base, composer.PathError)
	}

	base.Answer = ans.Text
	base.LLMSource = ans.Source
	base.Sources = formatSources(passages)

	res := o.finish(base, ans.Path)
	o.cacheSet(ctx, key, res.Payload)
	return res
}

func (o *Orchestrator) finish(resp models.Response, path string) Result {
	payload, err := json.Marshal(resp)
	if err != nil {
		// Response holds only strings, numbers and slices; Marshal cannot fail.
		panic(fmt.Sprintf("encode response: %v", err))
	}
	return Result{Response: resp, Payload: payload, Path: path}
}

func (o *Orchestrator) cacheKey(query string, env environment) string {
	city := ""
	if env.location.OK() {
		city = env.location.City
	}
	var temp *float64
	if env.weather.OK() {
		t := env.weather.Temperature
		temp = &t
	}
	return cache.Key(query, city, temp)
}

func (o *Orchestrator) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if o.deps.Cache == nil {
		return nil, false
	}
	payload, ok, err := o.deps.Cache.Get(ctx, key)
	if err != nil {
		observability.LoggerFromContext(ctx, o.deps.Logger).Warn("cache read failed", zap.Error(err))
		return nil, false
	}
	return payload, ok
}

func (o *Orchestrator) cacheSet(ctx context.Context, key string, payload []byte) {
	if o.deps.Cache == nil {
		return
	}
	if err := o.deps.Cache.Set(ctx, key, payload, o.opts.CacheTTL); err != nil {
		observability.LoggerFromContext(ctx, o.deps.Logger).Warn("cache write failed", zap.Error(err))
	}
}

func formatSources(passages []models.Passage) []string {
	if len(passages) == 0 {
		return []string{noDocumentsSource}
	}
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		src := p.Source
		if src == "" {
			src = "Unknown"
		}
		page := "N/A"
		if p.Page > 0 {
			page = fmt.Sprint(p.Page)
		}
		out = append(out, fmt.Sprintf("Document: %s (Page %s)", src, page))
	}
	return out
}

// environment is the gateway data gathered for one query.
type environment struct {
	location *models.LocationInfo
	weather  *models.WeatherInfo
	forecast *models.ForecastInfo
}

// fetch resolves the location and then weather (and forecast when asked).
// A place named in the query is used directly unless the query is deictic;
// otherwise the caller's IP location is looked up first.
func (o *Orchestrator) fetch(ctx context.Context, intent classifier.Intent) environment {
	var env environment
	var weatherQuery client.WeatherQuery

	if intent.Location != "" && !intent.Deictic {
		env.location = &models.LocationInfo{City: intent.Location, Source: SourceQueryText}
		weatherQuery = client.ByName(intent.Location)
	} else {
		env.location = fromResult(o.deps.Locator.Locate(ctx), func(l *models.LocationInfo, kind, detail string) {
			l.Error, l.ErrorKind = detail, kind
		})
		if !env.location.OK() {
			return env
		}
		if env.location.HasCoordinates() {
			weatherQuery = client.ByCoordinates(env.location.Latitude, env.location.Longitude, env.location.City)
		} else {
			weatherQuery = client.ByName(env.location.City)
		}
	}

	getWeather := func() {
		env.weather = fromResult(o.deps.Weather.Current(ctx, weatherQuery), func(w *models.WeatherInfo, kind, detail string) {
			w.Error, w.ErrorKind = detail, kind
		})
	}
	getForecast := func() {
		env.forecast = fromResult(o.deps.Weather.Forecast(ctx, weatherQuery.Name, o.opts.ForecastDays), func(f *models.ForecastInfo, kind, detail string) {
			f.Error, f.ErrorKind = detail, kind
		})
	}

	switch {
	case !intent.WantsForecast || weatherQuery.Name == "":
		getWeather()
	case !o.opts.ParallelFetch:
		getWeather()
		getForecast()
	default:
		var g errgroup.Group
		g.Go(func() error { getWeather(); return nil })
		g.Go(func() error { getForecast(); return nil })
		_ = g.Wait()
	}
	env.confirmQueryPlace()
	return env
}

// confirmQueryPlace marks a place taken from the query text as unresolved
// when the weather provider does not know it.
func (env *environment) confirmQueryPlace() {
	if !env.location.OK() || env.location.Source != SourceQueryText {
		return
	}
	if env.weather != nil && env.weather.ErrorKind == string(client.KindNotFound) {
		env.location.Error = env.weather.Error
		env.location.ErrorKind = env.weather.ErrorKind
	}
}

// fromResult returns the value of r, or a zero value carrying the error
// marker written by mark.
func fromResult[T any](r client.Result[T], mark func(v *T, kind, detail string)) *T {
	if r.OK() {
		v := r.Value
		return &v
	}
	var v T
	mark(&v, string(r.Kind()), r.Err.Detail)
	return &v
}
