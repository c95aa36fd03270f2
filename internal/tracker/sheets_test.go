package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/pkg/logger"
)

func TestNewTrackedGistRoundTripsThroughRow(t *testing.T) {
	trendID := "0b7e7c1e-5a4f-4d8e-9f51-2c0a1b2c3d4e"
	image := "https://img.example/a.png"
	published := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	gist := &models.Gist{
		ID:            "gist-1",
		TrendID:       &trendID,
		Topic:         "Lakers trade",
		TopicCategory: "sports",
		Headline:      "Lakers make a move",
		Narration:     strings.Repeat("n", 250),
		ImageURL:      &image,
		PublishedAt:   published,
		Meta:          models.JSON{"image_source": "trend"},
	}

	tracked := NewTrackedGist(gist)
	assert.Len(t, []rune(tracked.NarrationPreview), previewChars+3)
	assert.Equal(t, "trend", tracked.ImageSource)
	assert.Empty(t, tracked.SourceURL)

	parsed := parseRow(tracked.row())
	require.NotNil(t, parsed)
	assert.True(t, published.Equal(parsed.PublishedAt))
	parsed.PublishedAt = tracked.PublishedAt
	assert.Equal(t, *tracked, *parsed)
}

func TestParseRowEmpty(t *testing.T) {
	assert.Nil(t, parseRow(nil))
}

func TestGistPublishedAppendsRow(t *testing.T) {
	var (
		mu     sync.Mutex
		paths  []string
		bodies []map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, body)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tracker, err := newSheetsTracker(context.Background(),
		config.TrackerConfig{Enabled: true, SpreadsheetID: "sheet-123"},
		logger.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	err = tracker.GistPublished(context.Background(), &models.Gist{ID: "gist-1", Topic: "t", Headline: "h"})
	require.NoError(t, err)

	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "/spreadsheets/sheet-123/values/")
	assert.True(t, strings.HasSuffix(paths[0], ":append"))

	values, ok := bodies[0]["values"].([]interface{})
	require.True(t, ok)
	require.Len(t, values, 1)
	row := values[0].([]interface{})
	assert.Equal(t, "gist-1", row[0])
	assert.Len(t, row, len(SheetColumns))
}

func TestDisabledTrackerIsNil(t *testing.T) {
	tracker, err := NewSheetsTracker(context.Background(), config.TrackerConfig{}, logger.Nop())
	assert.NoError(t, err)
	assert.Nil(t, tracker)
}
