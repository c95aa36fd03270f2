package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trendgist/internal/agent/publisher"
	"github.com/trendgist/internal/app"
	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/storage"
	"github.com/trendgist/internal/tracker"
	"github.com/trendgist/pkg/logger"
)

var (
	cfgFile     string
	cfg         *config.Config
	log         *logger.Logger
	application *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trendgist",
		Short: "Trend to gist publishing pipeline",
		Long: `Generates short AI-narrated gists for trending topics, grounded in
recent news coverage, and publishes exactly one gist per trend.`,
		PersistentPreRunE: initializeApp,
		PersistentPostRun: func(cmd *cobra.Command, args []string) { closeApp() },
		SilenceUsage:      true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(trendsCmd())
	rootCmd.AddCommand(gistsCmd())
	rootCmd.AddCommand(trackerCmd())

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The CLI never serves HTTP, so the trigger secret is optional here
	cfg.Server.Enabled = false
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = app.NewLogger(cfg)

	application, err = app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	return nil
}

func closeApp() {
	if application != nil {
		application.Close()
		application = nil
	}
}

// ============ PUBLISH COMMAND ============

func publishCmd() *cobra.Command {
	var (
		trendID   string
		category  string
		imageURL  string
		sourceURL string
	)

	cmd := &cobra.Command{
		Use:   "publish [topic]",
		Short: "Generate and publish a gist for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			req := publisher.Request{
				Topic:         strings.Join(args, " "),
				TrendID:       optional(trendID),
				TopicCategory: optional(category),
				ImageURL:      optional(imageURL),
				SourceURL:     optional(sourceURL),
			}

			resp := application.Publisher.Publish(ctx, req)
			if !resp.Success {
				return fmt.Errorf("publish failed at %s (%s, status %d): %s", resp.Stage, resp.Code, resp.StatusCode, resp.Error)
			}

			printGist(resp.Gist)
			return nil
		},
	}

	cmd.Flags().StringVar(&trendID, "trend", "", "Trend ID to link the gist to")
	cmd.Flags().StringVar(&category, "category", "", "Topic category")
	cmd.Flags().StringVar(&imageURL, "image", "", "Explicit image URL")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Source article URL")

	return cmd
}

// ============ BATCH COMMANDS ============

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch orchestration commands",
	}

	cmd.AddCommand(batchRunCmd())
	cmd.AddCommand(batchTokenCmd())
	return cmd
}

func batchRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Publish gists for unprocessed trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			summary, err := application.Batch.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Batch Results ===\n")
			fmt.Printf("Candidates: %d\n", summary.TotalCandidates)
			fmt.Printf("Generated:  %d\n", summary.Generated)
			fmt.Printf("Skipped:    %d\n", summary.Skipped)
			fmt.Printf("Failed:     %d\n", summary.Failed)
			fmt.Printf("Duration:   %s\n", summary.Duration.Round(time.Millisecond))

			return nil
		},
	}
}

func batchTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the batch HTTP trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := application.Auth.MintToken(ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 10*time.Minute, "Token lifetime")
	return cmd
}

// ============ SOURCES COMMANDS ============

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "News provider commands",
	}

	cmd.AddCommand(sourcesSearchCmd())
	cmd.AddCommand(sourcesListCmd())
	return cmd
}

func sourcesSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [topic]",
		Short: "Search all configured providers for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			topic := strings.Join(args, " ")

			result := application.Sources.Search(ctx, topic)

			fmt.Printf("\n=== Sources for %q (cached: %v) ===\n\n", topic, result.Cached)
			for _, s := range result.Stats {
				fmt.Printf("  %-12s ok=%-5v articles=%-3d %dms\n", s.Provider, s.OK, s.Count, s.DurationMS)
			}
			for _, f := range result.Failures {
				fmt.Printf("  FAILED %s (status %d): %s\n", f.Provider, f.Status, f.Error)
			}
			fmt.Println()

			for i, a := range result.Articles {
				if i >= limit {
					break
				}
				fmt.Printf("[%d] %s\n", i+1, a.Title)
				fmt.Printf("    %s | %s | %s\n", a.Provider, a.Source, formatTime(a.PublishedAt))
				fmt.Printf("    %s\n\n", a.URL)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum articles to show")
	return cmd
}

func sourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\n=== Providers ===")
			for _, p := range application.Sources.Providers() {
				fmt.Printf("  %-12s type=%-9s configured=%v\n", p.Name(), p.Type(), p.Configured())
			}
			return nil
		},
	}
}

// ============ TRENDS COMMANDS ============

func trendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Seed and inspect trend records",
	}

	cmd.AddCommand(trendsAddCmd())
	cmd.AddCommand(trendsListCmd())
	return cmd
}

func trendsAddCmd() *cobra.Command {
	var imageURL string

	cmd := &cobra.Command{
		Use:   "add [topic]",
		Short: "Insert a trend record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			trend := &models.Trend{
				Topic:    strings.Join(args, " "),
				ImageURL: optional(imageURL),
			}
			if err := application.Repository.CreateTrend(ctx, trend); err != nil {
				return err
			}

			fmt.Printf("Created trend %s\n", trend.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&imageURL, "image", "", "Trend image URL")
	return cmd
}

func trendsListCmd() *cobra.Command {
	var pending bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trend records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultTrendFilter()
			filter.Limit = limit
			if pending {
				processed := false
				filter.Processed = &processed
			}

			trends, err := application.Repository.ListTrends(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Trends (%d) ===\n\n", len(trends))
			for _, t := range trends {
				fmt.Printf("[%s] processed=%v | %s\n", t.ID, t.Processed, t.Topic)
				if t.ImageURL != nil {
					fmt.Printf("    Image: %s\n", *t.ImageURL)
				}
				fmt.Printf("    Created: %s\n\n", t.CreatedAt.Format(time.RFC1123))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only unprocessed trends")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum trends to show")

	return cmd
}

// ============ GISTS COMMANDS ============

func gistsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gists",
		Short: "Inspect published gists",
	}

	cmd.AddCommand(gistsListCmd())
	return cmd
}

func gistsListCmd() *cobra.Command {
	var category string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published gists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultGistFilter()
			filter.Limit = limit
			filter.TopicCategory = optional(category)

			gists, err := application.Repository.ListGists(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Gists (%d) ===\n\n", len(gists))
			for _, g := range gists {
				printGist(g)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by topic category")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum gists to show")

	return cmd
}

// ============ TRACKER COMMANDS ============

func trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Google Sheets tracker management",
	}

	cmd.AddCommand(trackerInitCmd())
	cmd.AddCommand(trackerListCmd())
	return cmd
}

func trackerInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize Google Sheet with headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if application.Tracker == nil {
				return fmt.Errorf("tracker is not enabled in config - set tracker.enabled=true and tracker.spreadsheet_id")
			}

			if err := application.Tracker.InitializeSheet(ctx); err != nil {
				return fmt.Errorf("failed to initialize sheet: %w", err)
			}

			fmt.Println("Google Sheet initialized successfully!")
			fmt.Printf("Spreadsheet ID: %s\n", cfg.Tracker.SpreadsheetID)
			fmt.Printf("Sheet Name: %s\n", cfg.Tracker.SheetName)
			fmt.Println("\nColumns created:")
			for i, col := range tracker.SheetColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}

			return nil
		},
	}
}

func trackerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked gists from Google Sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if application.Tracker == nil {
				return fmt.Errorf("tracker is not enabled in config")
			}

			tracked, err := application.Tracker.ListTracked(ctx)
			if err != nil {
				return fmt.Errorf("failed to get tracked gists: %w", err)
			}

			fmt.Printf("\n=== Tracked Gists (%d) ===\n\n", len(tracked))
			for _, g := range tracked {
				fmt.Printf("[%s] %s | %s\n", g.GistID, g.Category, g.Headline)
				if g.TrendID != "" {
					fmt.Printf("    Trend: %s\n", g.TrendID)
				}
				fmt.Println()
			}

			return nil
		},
	}
}

func printGist(g *models.Gist) {
	fmt.Printf("[%s] %s | %s\n", g.ID, g.TopicCategory, g.Headline)
	fmt.Printf("    Topic: %s\n", g.Topic)
	if g.TrendID != nil {
		fmt.Printf("    Trend: %s\n", *g.TrendID)
	}
	if g.ImageURL != nil {
		fmt.Printf("    Image: %s\n", *g.ImageURL)
	}
	if g.SourceURL != nil {
		fmt.Printf("    Source: %s\n", *g.SourceURL)
	}
	fmt.Printf("    Narration: %s\n", g.Narration)
	fmt.Printf("    Published: %s\n\n", g.PublishedAt.Format(time.RFC1123))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return t.Format(time.RFC1123)
}
