package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Repository{db: db}, nil
}

// DB exposes the gorm handle so the SQL cache store can share the connection
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Trend{},
		&models.Gist{},
		&models.CacheEntry{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Trend operations

func (r *Repository) CreateTrend(ctx context.Context, trend *models.Trend) error {
	return r.db.WithContext(ctx).Create(trend).Error
}

// GetTrend matches the id case-insensitively; the stored id is returned as written.
func (r *Repository) GetTrend(ctx context.Context, id string) (*models.Trend, error) {
	var trend models.Trend
	if err := r.db.WithContext(ctx).Where("id = ? COLLATE NOCASE", id).First(&trend).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &trend, nil
}

func (r *Repository) ListTrends(ctx context.Context, filter storage.TrendFilter) ([]*models.Trend, error) {
	var trends []*models.Trend
	query := r.db.WithContext(ctx).Model(&models.Trend{})

	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}

	if filter.OrderDesc {
		query = query.Order("created_at DESC")
	} else {
		query = query.Order("created_at ASC")
	}

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&trends).Error; err != nil {
		return nil, err
	}
	return trends, nil
}

func (r *Repository) ListUnpublishedTrends(ctx context.Context, limit int) ([]*models.Trend, error) {
	var trends []*models.Trend
	query := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM gists WHERE gists.trend_id = trends.id)").
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&trends).Error; err != nil {
		return nil, err
	}
	return trends, nil
}

func (r *Repository) MarkTrendProcessed(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Trend{}).
		Where("id = ?", id).
		Update("processed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Gist operations

// CreateGist inserts the gist. A second gist for the same trend fails on the
// unique index and is reported as storage.ErrDuplicateTrend.
func (r *Repository) CreateGist(ctx context.Context, gist *models.Gist) error {
	err := r.db.WithContext(ctx).Create(gist).Error
	if err == nil {
		return nil
	}
	if gist.TrendID != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", storage.ErrDuplicateTrend, err)
	}
	return err
}

func (r *Repository) GetGist(ctx context.Context, id string) (*models.Gist, error) {
	var gist models.Gist
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&gist).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &gist, nil
}

func (r *Repository) HasGistForTrend(ctx context.Context, trendID string) (bool, error) {
	count, err := r.CountGistsForTrend(ctx, trendID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) CountGistsForTrend(ctx context.Context, trendID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Gist{}).
		Where("trend_id = ?", trendID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) ListGists(ctx context.Context, filter storage.GistFilter) ([]*models.Gist, error) {
	var gists []*models.Gist
	query := r.db.WithContext(ctx).Model(&models.Gist{})

	if filter.TrendID != nil {
		query = query.Where("trend_id = ?", *filter.TrendID)
	}
	if filter.TopicCategory != nil {
		query = query.Where("topic_category = ?", *filter.TopicCategory)
	}

	query = query.Order("published_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&gists).Error; err != nil {
		return nil, err
	}
	return gists, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
