package source

import (
	"context"

	"github.com/trendgist/internal/models"
)

// Provider searches one news API for articles about a topic
type Provider interface {
	// Name returns the unique name of this provider
	Name() string

	// Type returns the provider type (newsapi, gnews, newsdata, rss)
	Type() string

	// Configured reports whether the provider has the credentials it needs.
	// Unconfigured providers are skipped without being counted as failures.
	Configured() bool

	// Search retrieves articles matching the topic
	Search(ctx context.Context, topic string) ([]*models.SourceArticle, error)
}

// Failure records a provider that could not return results
type Failure struct {
	Provider string `json:"provider"`
	Status   int    `json:"status,omitempty"`
	Error    string `json:"error"`
}

// ProviderStat records the outcome of one provider search
type ProviderStat struct {
	Provider   string `json:"provider"`
	Count      int    `json:"count"`
	DurationMS int64  `json:"duration_ms"`
	OK         bool   `json:"ok"`
}

// Result is the merged outcome of a fan-out search
type Result struct {
	Success  bool                    `json:"success"`
	Articles []*models.SourceArticle `json:"articles"`
	Failures []Failure               `json:"failures"`
	Stats    []ProviderStat          `json:"stats"`
	Cached   bool                    `json:"cached"`
}

// Selected returns the most recent article, or nil when nothing was found
func (r *Result) Selected() *models.SourceArticle {
	if r == nil || len(r.Articles) == 0 {
		return nil
	}
	return r.Articles[0]
}
