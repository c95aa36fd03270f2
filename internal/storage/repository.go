package storage

import (
	"context"
	"errors"

	"github.com/trendgist/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateTrend is returned when a gist already references the trend
	ErrDuplicateTrend = errors.New("trend already linked to a gist")
)

// Repository defines the interface for data persistence
type Repository interface {
	// Trend operations
	CreateTrend(ctx context.Context, trend *models.Trend) error
	GetTrend(ctx context.Context, id string) (*models.Trend, error)
	ListTrends(ctx context.Context, filter TrendFilter) ([]*models.Trend, error)
	// ListUnpublishedTrends returns unprocessed trends that no gist references, oldest first
	ListUnpublishedTrends(ctx context.Context, limit int) ([]*models.Trend, error)
	MarkTrendProcessed(ctx context.Context, id string) error

	// Gist operations
	CreateGist(ctx context.Context, gist *models.Gist) error
	GetGist(ctx context.Context, id string) (*models.Gist, error)
	HasGistForTrend(ctx context.Context, trendID string) (bool, error)
	ListGists(ctx context.Context, filter GistFilter) ([]*models.Gist, error)
	CountGistsForTrend(ctx context.Context, trendID string) (int64, error)

	// Maintenance
	Close() error
	Migrate() error
}

// TrendFilter defines filtering options for trends
type TrendFilter struct {
	Processed *bool
	Limit     int
	Offset    int
	OrderDesc bool
}

// GistFilter defines filtering options for gists
type GistFilter struct {
	TrendID       *string
	TopicCategory *string
	Limit         int
	Offset        int
}

// DefaultTrendFilter returns a filter with sensible defaults
func DefaultTrendFilter() TrendFilter {
	return TrendFilter{
		Limit:     50,
		OrderDesc: true,
	}
}

// DefaultGistFilter returns a filter with sensible defaults
func DefaultGistFilter() GistFilter {
	return GistFilter{
		Limit: 50,
	}
}
