package gnews

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

// Provider searches the GNews v4 search endpoint
type Provider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a GNews provider
func New(cfg config.ProviderConfig, client *http.Client, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if client == nil {
		client = source.NewHTTPClient()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gnews.io/api/v4"
	}
	return &Provider{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		log:     log.WithSource("gnews", "gnews"),
	}
}

func (p *Provider) Name() string { return "gnews" }

func (p *Provider) Type() string { return "gnews" }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

type response struct {
	TotalArticles int `json:"totalArticles"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
	Errors []string `json:"errors"`
}

// Search queries GNews for the topic
func (p *Provider) Search(ctx context.Context, topic string) ([]*models.SourceArticle, error) {
	if err := p.limiter.Wait(ctx, ratelimit.LimiterGNews); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	params := url.Values{}
	params.Set("q", topic)
	params.Set("apikey", p.cfg.APIKey)
	params.Set("sortby", "publishedAt")
	if p.cfg.Language != "" {
		params.Set("lang", p.cfg.Language)
	}
	if p.cfg.PageSize > 0 {
		params.Set("max", strconv.Itoa(p.cfg.PageSize))
	}

	var resp response
	if err := source.GetJSON(ctx, p.client, p.Name(), p.cfg.BaseURL+"/search", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("gnews error: %s", resp.Errors[0])
	}

	articles := make([]*models.SourceArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, &models.SourceArticle{
			Title:       source.CleanText(a.Title),
			Description: source.CleanText(a.Description),
			Content:     source.CleanText(a.Content),
			URL:         a.URL,
			Image:       a.Image,
			Source:      a.Source.Name,
			Provider:    p.Name(),
			PublishedAt: source.ParseTime(a.PublishedAt),
		})
	}

	p.log.Debug().Int("count", len(articles)).Str("topic", topic).Msg("Fetched GNews articles")
	return articles, nil
}

var _ source.Provider = (*Provider)(nil)
