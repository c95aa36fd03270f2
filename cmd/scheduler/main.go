package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/trendgist/internal/app"
	"github.com/trendgist/internal/config"
	"github.com/trendgist/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trendgist-scheduler",
		Short: "Background scheduler for the trend to gist pipeline",
		Long: `Runs the batch orchestrator on a cron schedule and serves the publish
and batch trigger HTTP API. This daemon should be run as a service.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = app.NewLogger(cfg)
	log.Info().Msg("Starting trendgist scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	// Create cron scheduler; overlapping batch ticks are skipped
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})), cron.WithLogger(cronLogger{log}))

	_, err = c.AddFunc(cfg.Scheduler.BatchCron, func() {
		log.Info().Msg("Running scheduled batch")

		summary, err := application.Batch.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled batch failed")
			return
		}

		log.Info().
			Int("candidates", summary.TotalCandidates).
			Int("generated", summary.Generated).
			Int("failed", summary.Failed).
			Msg("Scheduled batch completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule batch job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.BatchCron).Msg("Batch job scheduled")

	c.Start()
	log.Info().Msg("Scheduler started")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		server := application.Server()
		g.Go(func() error {
			return server.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()

	log.Info().Msg("Shutting down scheduler")
	<-c.Stop().Done()

	return err
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
