package newsdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/source"
	"github.com/trendgist/pkg/logger"
	"github.com/trendgist/pkg/ratelimit"
)

// Provider searches NewsData.io's /news endpoint
type Provider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a NewsData provider
func New(cfg config.ProviderConfig, client *http.Client, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if client == nil {
		client = source.NewHTTPClient()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsdata.io/api/1"
	}
	return &Provider{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		log:     log.WithSource("newsdata", "newsdata"),
	}
}

func (p *Provider) Name() string { return "newsdata" }

func (p *Provider) Type() string { return "newsdata" }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

// NewsData reports errors in-band with status "error"
type response struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		Content     string `json:"content"`
		PubDate     string `json:"pubDate"`
		ImageURL    string `json:"image_url"`
		SourceID    string `json:"source_id"`
		SourceName  string `json:"source_name"`
	} `json:"results"`
}

// Search queries NewsData for the topic
func (p *Provider) Search(ctx context.Context, topic string) ([]*models.SourceArticle, error) {
	if err := p.limiter.Wait(ctx, ratelimit.LimiterNewsData); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	params := url.Values{}
	params.Set("q", topic)
	params.Set("apikey", p.cfg.APIKey)
	if p.cfg.Language != "" {
		params.Set("language", p.cfg.Language)
	}
	if p.cfg.PageSize > 0 {
		params.Set("size", strconv.Itoa(p.cfg.PageSize))
	}

	var resp response
	if err := source.GetJSON(ctx, p.client, p.Name(), p.cfg.BaseURL+"/news", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("newsdata returned status %q", resp.Status)
	}

	articles := make([]*models.SourceArticle, 0, len(resp.Results))
	for _, r := range resp.Results {
		name := r.SourceName
		if name == "" {
			name = r.SourceID
		}
		articles = append(articles, &models.SourceArticle{
			Title:       source.CleanText(r.Title),
			Description: source.CleanText(r.Description),
			Content:     source.CleanText(r.Content),
			URL:         r.Link,
			Image:       r.ImageURL,
			Source:      name,
			Provider:    p.Name(),
			PublishedAt: source.ParseTime(r.PubDate),
		})
	}

	p.log.Debug().Int("count", len(articles)).Str("topic", topic).Msg("Fetched NewsData articles")
	return articles, nil
}

var _ source.Provider = (*Provider)(nil)
