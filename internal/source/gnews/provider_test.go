package gnews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/pkg/logger"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "5", r.URL.Query().Get("max"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"totalArticles": 1,
			"articles": [
				{"title": "Championship recap", "description": "d", "content": "c",
				 "url": "https://news.example/1", "image": "https://news.example/1.png",
				 "publishedAt": "2025-02-01T08:00:00Z", "source": {"name": "Example", "url": "https://news.example"}}
			]
		}`))
	}))
	defer srv.Close()

	p := New(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL, Language: "en", PageSize: 5}, srv.Client(), nil, logger.Nop())
	articles, err := p.Search(context.Background(), "championship")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Example", articles[0].Source)
	assert.Equal(t, "gnews", articles[0].Provider)
	assert.Equal(t, "https://news.example/1.png", articles[0].Image)
}

func TestSearchInBandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": ["You have reached your request limit"]}`))
	}))
	defer srv.Close()

	p := New(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client(), nil, logger.Nop())
	_, err := p.Search(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request limit")
}
