package app

import (
	"context"
	"fmt"

	"github.com/trendgist/internal/agent/batch"
	"github.com/trendgist/internal/agent/generator"
	"github.com/trendgist/internal/agent/publisher"
	"github.com/trendgist/internal/ai"
	"github.com/trendgist/internal/api"
	"github.com/trendgist/internal/cache"
	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/media/imagegen"
	"github.com/trendgist/internal/media/objectstore"
	"github.com/trendgist/internal/notify"
	"github.com/trendgist/internal/source"
	"github.com/trendgist/internal/source/gnews"
	"github.com/trendgist/internal/source/newsapi"
	"github.com/trendgist/internal/source/newsdata"
	"github.com/trendgist/internal/source/rss"
	"github.com/trendgist/internal/storage/sqlite"
	"github.com/trendgist/internal/tracker"
	"github.com/trendgist/pkg/logger"
	"github.com/trendgist/pkg/ratelimit"
)

// App holds the wired pipeline shared by the CLI and the scheduler
type App struct {
	Config     *config.Config
	Log        *logger.Logger
	Repository *sqlite.Repository
	Cache      cache.Store
	Sources    *source.Aggregator
	Generator  *generator.Agent
	Publisher  *publisher.Agent
	Batch      *batch.Agent
	Auth       *batch.Authenticator
	Tracker    *tracker.SheetsTracker

	closers []func()
}

// NewLogger builds the process logger from configuration
func NewLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// New opens storage and wires every pipeline component
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.Repository = repo
	a.closers = append(a.closers, func() { _ = repo.Close() })

	if err := repo.Migrate(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := cache.New(cfg, repo.DB(), log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = store
	if r, ok := store.(*cache.Redis); ok {
		a.closers = append(a.closers, func() { _ = r.Close() })
	}

	limiter := ratelimit.NewLimiter(ratelimit.Limits{
		AnthropicPerMinute: cfg.RateLimit.AnthropicRequestsPerMinute,
		ImageGenPerMinute:  cfg.RateLimit.ImageGenRequestsPerMinute,
		ProviderPerMinute:  cfg.RateLimit.ProviderRequestsPerMinute,
	})

	a.Sources = newAggregator(cfg, store, limiter, log)

	llm, err := ai.NewClient(cfg.Anthropic, limiter, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	images := imagegen.NewClient(cfg.ImageGen, limiter, log)

	a.Generator = generator.NewAgent(llm, images, a.Sources, store, generator.OptionsFromConfig(cfg.Publishing), log)

	var rehoster publisher.Rehoster
	if cfg.ObjectStore.Enabled {
		gcs, err := objectstore.NewGCS(ctx, cfg.ObjectStore, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create object store: %w", err)
		}
		rehoster = objectstore.NewRehoster(gcs, cfg.ObjectStore.Prefix, cfg.ObjectStore.Timeout, log)
	}

	notifier, err := a.newNotifier(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Publisher = publisher.NewAgent(a.Generator, rehoster, repo, notifier, cfg.Publishing, log)
	a.Batch = batch.NewAgent(a.Publisher, repo, cfg.Batch, log)
	a.Auth = batch.NewAuthenticator(cfg.Batch.Secret)

	return a, nil
}

func newAggregator(cfg *config.Config, store cache.Store, limiter *ratelimit.MultiLimiter, log *logger.Logger) *source.Aggregator {
	agg := source.NewAggregator(store, cfg.Sources.Timeout, cfg.Sources.CacheTTL, log)
	client := source.NewHTTPClient()

	agg.Register(newsapi.New(cfg.Sources.NewsAPI, client, limiter, log))
	agg.Register(gnews.New(cfg.Sources.GNews, client, limiter, log))
	agg.Register(newsdata.New(cfg.Sources.NewsData, client, limiter, log))
	agg.Register(rss.New(cfg.Sources.RSS, limiter, log))

	configured := agg.Configured()
	names := make([]string, 0, len(configured))
	for _, p := range configured {
		names = append(names, p.Name())
	}
	log.Info().Strs("providers", names).Msg("Source providers configured")

	return agg
}

// newNotifier returns nil when no downstream sink is configured
func (a *App) newNotifier(ctx context.Context, cfg *config.Config, log *logger.Logger) (publisher.Notifier, error) {
	var sinks []notify.Sink

	nc, err := notify.NewNATSPublisher(cfg.NATS, log)
	if err != nil {
		return nil, err
	}
	if nc != nil {
		sinks = append(sinks, notify.Sink{Name: "nats", Notifier: nc})
		a.closers = append(a.closers, nc.Close)
	}

	sheet, err := tracker.NewSheetsTracker(ctx, cfg.Tracker, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets tracker: %w", err)
	}
	if sheet != nil {
		a.Tracker = sheet
		sinks = append(sinks, notify.Sink{Name: "sheets", Notifier: sheet})
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	return notify.NewMulti(sinks...), nil
}

// Server builds the HTTP API over the wired agents
func (a *App) Server() *api.Server {
	return api.NewServer(a.Config.Server, a.Publisher, a.Batch, a.Auth, a.Log)
}

// Close releases connections in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
