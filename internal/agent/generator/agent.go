package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trendgist/internal/ai"
	"github.com/trendgist/internal/cache"
	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/media"
	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/pipeline"
	"github.com/trendgist/internal/source"
	"github.com/trendgist/pkg/logger"
)

// Completer is the language model call the generator needs
type Completer interface {
	CompleteWithJSON(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ImageGenerator creates an image and returns its temporary URL
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SourceSearcher finds grounding articles for a topic
type SourceSearcher interface {
	Search(ctx context.Context, topic string) *source.Result
}

// Options bounds the generated payload
type Options struct {
	SummaryChars      int
	GroundingChars    int
	NarrationMaxWords int
	CacheTTL          time.Duration
}

// OptionsFromConfig reads generator bounds from publishing config
func OptionsFromConfig(cfg config.PublishingConfig) Options {
	return Options{
		SummaryChars:      cfg.SummaryChars,
		GroundingChars:    cfg.GroundingChars,
		NarrationMaxWords: cfg.NarrationMaxWords,
		CacheTTL:          cfg.GistCacheTTL,
	}
}

func (o Options) withDefaults() Options {
	if o.SummaryChars <= 0 {
		o.SummaryChars = 150
	}
	if o.GroundingChars <= 0 {
		o.GroundingChars = 4000
	}
	if o.NarrationMaxWords <= 0 {
		o.NarrationMaxWords = 120
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	return o
}

// Agent turns a topic into a structured, narrated gist payload
type Agent struct {
	llm     Completer
	images  ImageGenerator
	sources SourceSearcher
	cache   cache.Store
	opts    Options
	log     *logger.Logger
}

// NewAgent creates a generator. images, sources and store may be nil.
func NewAgent(llm Completer, images ImageGenerator, sources SourceSearcher, store cache.Store, opts Options, log *logger.Logger) *Agent {
	return &Agent{
		llm:     llm,
		images:  images,
		sources: sources,
		cache:   store,
		opts:    opts.withDefaults(),
		log:     log.WithComponent("generator"),
	}
}

// llmOutput is the exact JSON contract requested from the model
type llmOutput struct {
	Headline     string `json:"headline"`
	Context      string `json:"context"`
	Narration    string `json:"narration"`
	ImageKeyword string `json:"image_keyword"`
}

// Generate produces content for topic. When grounding is nil the aggregator is
// asked for the most recent article. Failures are *pipeline.Error tagged ai_generate.
func (a *Agent) Generate(ctx context.Context, topic string, grounding *models.SourceArticle) (*models.GeneratedContent, error) {
	log := a.log.WithTopic(topic)
	key := cache.Key(cache.PrefixGist, topic)

	if a.cache != nil {
		var cached models.GeneratedContent
		ok, err := cache.GetJSON(ctx, a.cache, key, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Gist cache lookup failed")
		}
		metrics.CacheResult(cache.PrefixGist, ok)
		if ok {
			log.Debug().Msg("Gist cache hit")
			return &cached, nil
		}
	}

	if grounding == nil && a.sources != nil {
		result := a.sources.Search(ctx, topic)
		grounding = result.Selected()
		log.Debug().
			Bool("grounded", grounding != nil).
			Int("failures", len(result.Failures)).
			Msg("Source lookup complete")
	}

	system := fmt.Sprintf(GistSystemPrompt, a.opts.NarrationMaxWords)
	user := fmt.Sprintf(GistUserPrompt, topic, a.groundingSection(grounding))

	log.Info().Bool("grounded", grounding != nil).Msg("Generating gist")

	response, err := a.llm.CompleteWithJSON(ctx, system, user)
	if err != nil {
		return nil, pipeline.Upstream(pipeline.StageAIGenerate, pipeline.CodeVendorError, err)
	}

	var out llmOutput
	if err := ai.DecodeJSON(response, &out); err != nil {
		log.Error().Err(err).Msg("Model returned malformed output")
		return nil, pipeline.Upstream(pipeline.StageAIGenerate, pipeline.CodeMalformedOutput, err)
	}

	content := &models.GeneratedContent{
		Headline:      strings.TrimSpace(out.Headline),
		Context:       strings.TrimSpace(out.Context),
		Narration:     strings.TrimSpace(out.Narration),
		ImageKeyword:  strings.TrimSpace(out.ImageKeyword),
		UsedGrounding: grounding != nil,
	}
	content.Summary = summarize(content.Context, a.opts.SummaryChars)
	applyProvenance(content, grounding)

	hasGroundingImage := content.SourceImageURL != nil
	if !hasGroundingImage && !content.UsedGrounding {
		content.AIGeneratedImage = a.fallbackImage(ctx, topic, content.ImageKeyword, log)
	}

	if a.cache != nil && content.Complete() {
		if err := cache.SetJSON(ctx, a.cache, key, content, a.opts.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache gist")
		}
	}

	log.Info().
		Bool("used_grounding", content.UsedGrounding).
		Bool("generated_image", content.AIGeneratedImage != nil).
		Msg("Gist generated")

	return content, nil
}

func (a *Agent) groundingSection(grounding *models.SourceArticle) string {
	if grounding == nil {
		return UngroundedSection
	}

	var body []string
	for _, part := range []string{grounding.Description, grounding.Content} {
		if strings.TrimSpace(part) != "" {
			body = append(body, part)
		}
	}
	text := sanitizeGrounding(strings.Join(body, " "), a.opts.GroundingChars)

	name := grounding.Source
	if name == "" {
		name = grounding.Provider
	}
	return fmt.Sprintf(GroundedSection, name, sanitizeGrounding(grounding.Title, 300), text)
}

// fallbackImage is the last-resort image vendor call. A failure means no image.
func (a *Agent) fallbackImage(ctx context.Context, topic, keyword string, log *logger.Logger) *string {
	if a.images == nil {
		return nil
	}
	subject := keyword
	if subject == "" {
		subject = topic
	}

	url, err := a.images.Generate(ctx, fmt.Sprintf(ImagePrompt, subject))
	if err != nil {
		log.Warn().Err(err).Msg("Image generation failed, continuing without image")
		return nil
	}
	if !media.ValidURL(url) {
		log.Warn().Str("url", url).Msg("Image vendor returned an invalid URL")
		return nil
	}
	return &url
}

func applyProvenance(content *models.GeneratedContent, grounding *models.SourceArticle) {
	if grounding == nil {
		return
	}
	if grounding.URL != "" {
		u := grounding.URL
		content.SourceURL = &u
	}
	if grounding.Title != "" {
		title := grounding.Title
		content.SourceTitle = &title
	}
	if grounding.Source != "" {
		name := grounding.Source
		content.SourceName = &name
	}
	if !grounding.PublishedAt.IsZero() {
		published := grounding.PublishedAt
		content.SourcePublishedAt = &published
	}
	if media.UsableImage(grounding.Image) {
		img := strings.TrimSpace(grounding.Image)
		content.SourceImageURL = &img
	}
}
