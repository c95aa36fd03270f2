package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trendgist/internal/cache"
	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/pkg/logger"
)

// Default aggregation bounds
const (
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = time.Hour
)

// Aggregator fans a topic search out to every configured provider
type Aggregator struct {
	providers []Provider
	cache     cache.Store
	timeout   time.Duration
	cacheTTL  time.Duration
	log       *logger.Logger
}

// NewAggregator creates an aggregator. store may be nil to disable caching.
func NewAggregator(store cache.Store, timeout, cacheTTL time.Duration, log *logger.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Aggregator{
		providers: make([]Provider, 0),
		cache:     store,
		timeout:   timeout,
		cacheTTL:  cacheTTL,
		log:       log.WithComponent("aggregator"),
	}
}

// Register adds a provider to the aggregator
func (a *Aggregator) Register(p Provider) {
	a.providers = append(a.providers, p)
}

// Providers returns all registered providers
func (a *Aggregator) Providers() []Provider {
	return a.providers
}

// Configured returns the providers that will be queried
func (a *Aggregator) Configured() []Provider {
	var out []Provider
	for _, p := range a.providers {
		if p.Configured() {
			out = append(out, p)
		}
	}
	return out
}

// Search queries all configured providers concurrently and merges the results.
// It never returns an error: provider failures are reported in Result.Failures.
func (a *Aggregator) Search(ctx context.Context, topic string) *Result {
	log := a.log.WithTopic(topic)
	key := cache.Key(cache.PrefixSources, topic)

	if a.cache != nil {
		var cached Result
		ok, err := cache.GetJSON(ctx, a.cache, key, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Source cache lookup failed")
		}
		metrics.CacheResult(cache.PrefixSources, ok)
		if ok {
			log.Debug().Int("articles", len(cached.Articles)).Msg("Source cache hit")
			cached.Cached = true
			return &cached
		}
	}

	providers := a.Configured()
	outcomes := make([]providerOutcome, len(providers))

	// Each goroutine writes only its own slot and never returns an error,
	// so one provider cannot cancel the others.
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = a.searchOne(gctx, p, topic)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		Articles: make([]*models.SourceArticle, 0),
		Failures: make([]Failure, 0),
		Stats:    make([]ProviderStat, 0, len(providers)),
	}
	for _, o := range outcomes {
		result.Stats = append(result.Stats, o.stat)
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
			continue
		}
		result.Articles = append(result.Articles, o.articles...)
	}

	sortByPublishedDesc(result.Articles)
	result.Success = len(result.Articles) > 0

	log.Info().
		Int("providers", len(providers)).
		Int("articles", len(result.Articles)).
		Int("failures", len(result.Failures)).
		Msg("Aggregated sources")

	if result.Success && a.cache != nil {
		if err := cache.SetJSON(ctx, a.cache, key, result, a.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache source result")
		}
	}

	return result
}

type providerOutcome struct {
	articles []*models.SourceArticle
	failure  *Failure
	stat     ProviderStat
}

func (a *Aggregator) searchOne(ctx context.Context, p Provider, topic string) (out providerOutcome) {
	start := time.Now()
	out.stat.Provider = p.Name()

	defer func() {
		if r := recover(); r != nil {
			out.articles = nil
			out.failure = &Failure{Provider: p.Name(), Error: fmt.Sprintf("panic: %v", r)}
		}
		out.stat.DurationMS = time.Since(start).Milliseconds()
		out.stat.OK = out.failure == nil
		out.stat.Count = len(out.articles)

		status := "ok"
		if out.failure != nil {
			status = "error"
		}
		metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), status).Inc()
		metrics.ProviderArticlesTotal.WithLabelValues(p.Name()).Add(float64(out.stat.Count))
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	log := a.log.WithSource(p.Type(), p.Name())

	articles, err := p.Search(ctx, topic)
	if err != nil {
		failure := &Failure{Provider: p.Name(), Error: err.Error()}
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			failure.Status = statusErr.Code
		}
		log.Warn().Err(err).Msg("Provider search failed")
		out.failure = failure
		return out
	}

	kept := make([]*models.SourceArticle, 0, len(articles))
	for _, art := range articles {
		if art == nil || strings.TrimSpace(art.Title) == "" {
			continue
		}
		if art.Provider == "" {
			art.Provider = p.Name()
		}
		kept = append(kept, art)
	}
	out.articles = kept

	log.Debug().Int("count", len(kept)).Msg("Provider search complete")
	return out
}

// sortByPublishedDesc orders newest first; zero timestamps sort last
func sortByPublishedDesc(articles []*models.SourceArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
