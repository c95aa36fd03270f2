package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trendgist/internal/agent/publisher"
	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/pipeline"
	"github.com/trendgist/internal/storage"
	"github.com/trendgist/pkg/logger"
)

// Publisher runs one publish request
type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) *publisher.Response
}

// Outcome is the per-trend result of a batch run
type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Agent drives unpublished trends through the publisher
type Agent struct {
	publisher   Publisher
	repository  storage.Repository
	size        int
	concurrency int
	log         *logger.Logger
}

// NewAgent creates a new batch agent
func NewAgent(
	pub Publisher,
	repository storage.Repository,
	batchConfig config.BatchConfig,
	log *logger.Logger,
) *Agent {
	size := batchConfig.Size
	if size <= 0 {
		size = 10
	}
	concurrency := batchConfig.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Agent{
		publisher:   pub,
		repository:  repository,
		size:        size,
		concurrency: concurrency,
		log:         log.WithComponent("batch"),
	}
}

// Summary contains the results of a batch run
type Summary struct {
	Success         bool          `json:"success"`
	Generated       int           `json:"generated"`
	TotalCandidates int           `json:"total_candidates"`
	Skipped         int           `json:"-"`
	Failed          int           `json:"-"`
	Duration        time.Duration `json:"-"`
}

// Run publishes up to the configured batch size of unpublished trends, oldest first.
// A per-trend failure is logged and counted; it never aborts the run.
func (a *Agent) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()
	summary := &Summary{}

	trends, err := a.repository.ListUnpublishedTrends(ctx, a.size)
	if err != nil {
		metrics.BatchRunsTotal.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("failed to list unpublished trends: %w", err)
	}
	summary.TotalCandidates = len(trends)

	a.log.Info().
		Int("candidates", len(trends)).
		Int("concurrency", a.concurrency).
		Msg("Starting batch run")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, trend := range trends {
		trend := trend
		g.Go(func() error {
			outcome := a.processTrend(gctx, trend)
			metrics.BatchRunsTotal.WithLabelValues(string(outcome)).Inc()

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeGenerated:
				summary.Generated++
			case OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Success = true
	summary.Duration = time.Since(startTime)

	a.log.Info().
		Int("generated", summary.Generated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Batch run completed")

	return summary, nil
}

func (a *Agent) processTrend(ctx context.Context, trend *models.Trend) Outcome {
	log := a.log.WithTrendID(trend.ID)

	if strings.TrimSpace(trend.Topic) == "" {
		log.Warn().Msg("Trend has no topic text, skipping")
		return OutcomeFailed
	}

	// Another run may have published it since the candidate list was read
	exists, err := a.repository.HasGistForTrend(ctx, trend.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to re-check trend")
		return OutcomeFailed
	}
	if exists {
		a.markProcessed(ctx, log, trend.ID)
		log.Debug().Msg("Trend already published")
		return OutcomeSkipped
	}

	id := trend.ID
	resp := a.publisher.Publish(ctx, publisher.Request{
		Topic:   trend.Topic,
		TrendID: &id,
	})

	switch {
	case resp.Success:
		a.markProcessed(ctx, log, trend.ID)
		return OutcomeGenerated
	case pipeline.IsDuplicateTrend(resp.Err):
		a.markProcessed(ctx, log, trend.ID)
		log.Info().Msg("Trend published concurrently, skipping")
		return OutcomeSkipped
	default:
		log.Error().
			Str("stage", resp.Stage).
			Str("code", resp.Code).
			Str("error", resp.Error).
			Msg("Failed to publish trend")
		return OutcomeFailed
	}
}

func (a *Agent) markProcessed(ctx context.Context, log *logger.Logger, id string) {
	if err := a.repository.MarkTrendProcessed(ctx, id); err != nil {
		log.Warn().Err(err).Msg("Failed to mark trend processed")
	}
}
