package newsapi

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

// removedTitle marks articles NewsAPI has withdrawn
const removedTitle = "[Removed]"

// Provider searches NewsAPI.org's /everything endpoint
type Provider struct {
	cfg     config.ProviderConfig
	client  *http.Client
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a NewsAPI provider
func New(cfg config.ProviderConfig, client *http.Client, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if client == nil {
		client = source.NewHTTPClient()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org/v2"
	}
	return &Provider{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		log:     log.WithSource("newsapi", "newsapi"),
	}
}

func (p *Provider) Name() string { return "newsapi" }

func (p *Provider) Type() string { return "newsapi" }

func (p *Provider) Configured() bool { return p.cfg.APIKey != "" }

type response struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Search queries NewsAPI for the topic, newest first
func (p *Provider) Search(ctx context.Context, topic string) ([]*models.SourceArticle, error) {
	if err := p.limiter.Wait(ctx, ratelimit.LimiterNewsAPI); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	params := url.Values{}
	params.Set("q", topic)
	params.Set("sortBy", "publishedAt")
	params.Set("apiKey", p.cfg.APIKey)
	if p.cfg.Language != "" {
		params.Set("language", p.cfg.Language)
	}
	if p.cfg.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(p.cfg.PageSize))
	}

	var resp response
	if err := source.GetJSON(ctx, p.client, p.Name(), p.cfg.BaseURL+"/everything", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("newsapi error: %s", resp.Message)
	}

	articles := make([]*models.SourceArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == removedTitle {
			continue
		}
		articles = append(articles, &models.SourceArticle{
			Title:       source.CleanText(a.Title),
			Description: source.CleanText(a.Description),
			Content:     source.CleanText(a.Content),
			URL:         a.URL,
			Image:       a.URLToImage,
			Source:      a.Source.Name,
			Provider:    p.Name(),
			PublishedAt: source.ParseTime(a.PublishedAt),
		})
	}

	p.log.Debug().Int("count", len(articles)).Str("topic", topic).Msg("Fetched NewsAPI articles")
	return articles, nil
}

// Ensure Provider implements source.Provider
var _ source.Provider = (*Provider)(nil)
