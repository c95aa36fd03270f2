package rss

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/source"
	"github.com/trendgist/pkg/logger"
	"github.com/trendgist/pkg/ratelimit"
)

// Source implements source.Provider for an RSS search feed such as
// https://news.google.com/rss/search?q=%s
type Source struct {
	name        string
	urlTemplate string
	maxItems    int
	parser      *gofeed.Parser
	limiter     *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates an RSS search provider
func New(cfg config.RSSConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Source {
	name := cfg.Name
	if name == "" {
		name = "rss"
	}
	return &Source{
		name:        name,
		urlTemplate: cfg.URLTemplate,
		maxItems:    cfg.MaxItems,
		parser:      gofeed.NewParser(),
		limiter:     limiter,
		log:         log.WithSource("rss", name),
	}
}

// Name returns the source name
func (s *Source) Name() string {
	return s.name
}

// Type returns "rss"
func (s *Source) Type() string {
	return "rss"
}

// Configured reports whether a search URL template is set
func (s *Source) Configured() bool {
	return strings.Contains(s.urlTemplate, "%s")
}

// Search fetches the feed for the topic and normalizes its items
func (s *Source) Search(ctx context.Context, topic string) ([]*models.SourceArticle, error) {
	if err := s.limiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	feedURL := fmt.Sprintf(s.urlTemplate, url.QueryEscape(topic))
	s.log.Debug().Str("url", feedURL).Msg("Fetching RSS feed")

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", s.name, err)
	}

	articles := make([]*models.SourceArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if s.maxItems > 0 && len(articles) >= s.maxItems {
			break
		}

		article := &models.SourceArticle{
			Title:       source.CleanText(item.Title),
			Description: source.CleanText(item.Description),
			Content:     source.CleanText(item.Content),
			URL:         item.Link,
			Image:       itemImage(item),
			Source:      itemSource(item, feed),
			Provider:    s.name,
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			article.PublishedAt = item.UpdatedParsed.UTC()
		}

		articles = append(articles, article)
	}

	s.log.Info().
		Int("count", len(articles)).
		Str("feed", s.name).
		Msg("Fetched RSS articles")

	return articles, nil
}

// itemImage returns the item image or the first image enclosure
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// itemSource prefers the item author, then the feed title
func itemSource(item *gofeed.Item, feed *gofeed.Feed) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	return feed.Title
}

// Ensure Source implements source.Provider
var _ source.Provider = (*Source)(nil)
