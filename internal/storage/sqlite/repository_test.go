package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func strPtr(s string) *string { return &s }

func newGist(trendID *string) *models.Gist {
	return &models.Gist{
		Topic:       "Drake drops a surprise song",
		Headline:    "Drake surprises fans",
		Context:     "The track arrived without notice.",
		Narration:   "So Drake just dropped a new song.",
		TrendID:     trendID,
		Status:      models.GistStatusPublished,
		PublishedAt: time.Now().UTC(),
	}
}

func TestTrendLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	trend := &models.Trend{Topic: "Lakers trade", ImageURL: strPtr("https://img/x.png")}
	require.NoError(t, repo.CreateTrend(ctx, trend))
	require.NotEmpty(t, trend.ID)

	got, err := repo.GetTrend(ctx, trend.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lakers trade", got.Topic)
	assert.Equal(t, "https://img/x.png", *got.ImageURL)
	assert.False(t, got.Processed)

	require.NoError(t, repo.MarkTrendProcessed(ctx, trend.ID))
	got, err = repo.GetTrend(ctx, trend.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
}

func TestGetTrendNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTrend(context.Background(), "3f1c2a8e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = repo.MarkTrendProcessed(context.Background(), "3f1c2a8e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetTrendIgnoresIDCase(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	trend := &models.Trend{ID: "3F2504E0-4F89-11D3-9A0C-0305E82C3301", Topic: "Lakers trade"}
	require.NoError(t, repo.CreateTrend(ctx, trend))

	for _, id := range []string{trend.ID, "3f2504e0-4f89-11d3-9a0c-0305e82c3301"} {
		got, err := repo.GetTrend(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, trend.ID, got.ID)
	}
}

func TestListUnpublishedTrendsAntiJoin(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Now().Add(-time.Hour)
	fresh := &models.Trend{Topic: "fresh", CreatedAt: base.Add(2 * time.Minute)}
	oldest := &models.Trend{Topic: "oldest", CreatedAt: base}
	processed := &models.Trend{Topic: "processed", Processed: true, CreatedAt: base.Add(time.Minute)}
	linked := &models.Trend{Topic: "linked", CreatedAt: base.Add(3 * time.Minute)}
	for _, tr := range []*models.Trend{fresh, oldest, processed, linked} {
		require.NoError(t, repo.CreateTrend(ctx, tr))
	}
	require.NoError(t, repo.CreateGist(ctx, newGist(&linked.ID)))

	trends, err := repo.ListUnpublishedTrends(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, oldest.ID, trends[0].ID)
	assert.Equal(t, fresh.ID, trends[1].ID)

	limited, err := repo.ListUnpublishedTrends(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCreateGistDuplicateTrend(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	trend := &models.Trend{Topic: "dup"}
	require.NoError(t, repo.CreateTrend(ctx, trend))

	require.NoError(t, repo.CreateGist(ctx, newGist(&trend.ID)))
	err := repo.CreateGist(ctx, newGist(&trend.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrDuplicateTrend))

	has, err := repo.HasGistForTrend(ctx, trend.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCreateGistAllowsManyUnlinked(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateGist(ctx, newGist(nil)))
	require.NoError(t, repo.CreateGist(ctx, newGist(nil)))

	gists, err := repo.ListGists(ctx, storage.DefaultGistFilter())
	require.NoError(t, err)
	assert.Len(t, gists, 2)
}

func TestCreateGistConcurrentSameTrend(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	trend := &models.Trend{Topic: "race"}
	require.NoError(t, repo.CreateTrend(ctx, trend))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.CreateGist(ctx, newGist(&trend.ID)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, storage.ErrDuplicateTrend)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	count, err := repo.CountGistsForTrend(ctx, trend.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGistMetaRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g := newGist(nil)
	g.Meta = models.JSON{"used_grounding": true, "image_source": "grounding"}
	require.NoError(t, repo.CreateGist(ctx, g))

	got, err := repo.GetGist(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, true, got.Meta["used_grounding"])
	assert.Equal(t, "grounding", got.Meta["image_source"])
	assert.Nil(t, got.ImageURL)
	assert.Nil(t, got.TrendID)
}
