package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/media"
	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/internal/pipeline"
	"github.com/trendgist/internal/storage"
	"github.com/trendgist/pkg/logger"
)

// ContentGenerator produces gist content for a topic
type ContentGenerator interface {
	Generate(ctx context.Context, topic string, grounding *models.SourceArticle) (*models.GeneratedContent, error)
}

// Notifier receives published gists. Failures never fail a publish.
type Notifier interface {
	GistPublished(ctx context.Context, gist *models.Gist) error
}

// State is a publish state machine position
type State string

const (
	StateReceived      State = "RECEIVED"
	StateTrendResolved State = "TREND_RESOLVED"
	StateGenerated     State = "GENERATED"
	StateValidated     State = "VALIDATED"
	StateImageResolved State = "IMAGE_RESOLVED"
	StatePersisted     State = "PERSISTED"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// Response is the publish envelope returned on every exit path
type Response struct {
	Success    bool         `json:"success"`
	Gist       *models.Gist `json:"gist,omitempty"`
	Error      string       `json:"error,omitempty"`
	Code       string       `json:"code,omitempty"`
	Stage      string       `json:"stage,omitempty"`
	StatusCode int          `json:"-"`

	// Err keeps the typed failure for in-process callers
	Err *pipeline.Error `json:"-"`
}

// Agent generates and persists gists, one per trend at most
type Agent struct {
	generator       ContentGenerator
	rehoster        Rehoster
	repository      storage.Repository
	notifier        Notifier
	validator       *requestValidator
	defaultCategory string
	now             func() time.Time
	log             *logger.Logger
}

// NewAgent creates a new publisher agent. rehoster and notifier may be nil.
func NewAgent(
	generator ContentGenerator,
	rehoster Rehoster,
	repository storage.Repository,
	notifier Notifier,
	publishConfig config.PublishingConfig,
	log *logger.Logger,
) *Agent {
	category := publishConfig.DefaultCategory
	if category == "" {
		category = "general"
	}
	return &Agent{
		generator:       generator,
		rehoster:        rehoster,
		repository:      repository,
		notifier:        notifier,
		validator:       newRequestValidator(),
		defaultCategory: category,
		now:             time.Now,
		log:             log.WithComponent("publisher"),
	}
}

// Publish runs the request through trend lookup, generation, validation,
// image resolution and persistence. It always returns a Response and never panics.
func (a *Agent) Publish(ctx context.Context, req Request) (resp *Response) {
	stage := pipeline.StageRequest
	log := a.log.WithTopic(req.Topic)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stage", string(stage)).Msg("Recovered from publish panic")
			resp = a.fail(log, pipeline.Internal(stage, fmt.Errorf("panic: %v", r)))
		}
		resp.StatusCode = pipeline.ClampStatus(resp.StatusCode)
	}()

	a.transition(log, StateReceived)

	req.normalize()
	if msg := a.validator.Validate(&req); msg != "" {
		return a.fail(log, pipeline.Validation(stage, pipeline.CodeInvalidRequest, msg))
	}

	var trend *models.Trend
	if req.TrendID != nil {
		stage = pipeline.StageTrendLookup
		log = log.WithTrendID(*req.TrendID)

		found, err := a.repository.GetTrend(ctx, *req.TrendID)
		if errors.Is(err, storage.ErrNotFound) {
			return a.fail(log, pipeline.NotFound(stage, pipeline.CodeTrendNotFound,
				fmt.Sprintf("trend %s not found", *req.TrendID)))
		}
		if err != nil {
			return a.fail(log, pipeline.Persistence(stage, pipeline.CodeDBError, err))
		}
		trend = found
		a.transition(log, StateTrendResolved)
	}

	stage = pipeline.StageAIGenerate
	content, err := a.generator.Generate(ctx, req.Topic, nil)
	if err != nil {
		if pe, ok := pipeline.As(err); ok {
			return a.fail(log, pe.WithStage(stage))
		}
		return a.fail(log, pipeline.Upstream(stage, pipeline.CodeVendorError, err))
	}
	a.transition(log, StateGenerated)

	stage = pipeline.StageValidate
	if missing := content.MissingFields(); len(missing) > 0 {
		return a.fail(log, pipeline.Validation(stage, pipeline.CodeMissingFields,
			"generated content missing required fields: "+strings.Join(missing, ", ")))
	}
	a.transition(log, StateValidated)

	stage = pipeline.StageImageHandling
	inputs := ImageInputs{
		GroundingImage: content.SourceImageURL,
		ExplicitImage:  req.ImageURL,
		GeneratedImage: content.AIGeneratedImage,
	}
	if trend != nil {
		inputs.TrendResolved = true
		inputs.TrendImage = trend.ImageURL
	}
	decision := ResolveImage(ctx, inputs, a.rehoster, log)
	a.transition(log, StateImageResolved)

	stage = pipeline.StageDBInsert
	gist := a.buildGist(req, content, decision, trend)

	// The trend/image pairing is load-bearing downstream; re-check it last
	if trend != nil {
		want := media.ValidPtr(trend.ImageURL)
		if !samePtr(gist.ImageURL, want) {
			log.Warn().Msg("Gist image disagreed with trend image, correcting")
			gist.ImageURL = want
			gist.Meta["image_source"] = string(ImageSourceTrend)
		}
	}

	if err := a.repository.CreateGist(ctx, gist); err != nil {
		code := pipeline.CodeDBError
		if errors.Is(err, storage.ErrDuplicateTrend) {
			code = pipeline.CodeDuplicateTrend
		}
		return a.fail(log, pipeline.Persistence(stage, code, err))
	}
	log = log.WithGistID(gist.ID)
	a.transition(log, StatePersisted)

	metrics.GistsPublishedTotal.WithLabelValues(string(decision.Source)).Inc()
	a.notify(ctx, log, gist)

	log.Info().
		Str("image_source", string(decision.Source)).
		Bool("used_grounding", content.UsedGrounding).
		Msg("Gist published")
	a.transition(log, StateDone)

	return &Response{
		Success:    true,
		Gist:       gist,
		StatusCode: http.StatusCreated,
	}
}

func (a *Agent) buildGist(req Request, content *models.GeneratedContent, decision ImageDecision, trend *models.Trend) *models.Gist {
	category := a.defaultCategory
	if req.TopicCategory != nil {
		category = *req.TopicCategory
	}

	sourceURL := req.SourceURL
	if sourceURL == nil {
		sourceURL = media.ValidPtr(content.SourceURL)
	}

	newsPublishedAt := req.NewsPublishedAt
	if newsPublishedAt == nil {
		newsPublishedAt = content.SourcePublishedAt
	}

	meta := models.JSON{
		"summary":        content.Summary,
		"image_keyword":  content.ImageKeyword,
		"used_grounding": content.UsedGrounding,
		"image_source":   string(decision.Source),
	}
	if content.SourceTitle != nil {
		meta["source_title"] = *content.SourceTitle
	}
	if content.SourceName != nil {
		meta["source_name"] = *content.SourceName
	}

	gist := &models.Gist{
		Topic:           req.Topic,
		TopicCategory:   category,
		Headline:        content.Headline,
		Context:         content.Context,
		Narration:       content.Narration,
		ImageURL:        decision.URL,
		SourceURL:       sourceURL,
		NewsPublishedAt: newsPublishedAt,
		Status:          models.GistStatusPublished,
		PublishedAt:     a.now().UTC(),
		Meta:            meta,
	}
	if trend != nil {
		id := trend.ID
		gist.TrendID = &id
	}
	return gist
}

func (a *Agent) notify(ctx context.Context, log *logger.Logger, gist *models.Gist) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.GistPublished(ctx, gist); err != nil {
		log.Warn().Err(err).Msg("Downstream notification failed")
	}
}

func (a *Agent) fail(log *logger.Logger, pe *pipeline.Error) *Response {
	metrics.PipelineFailuresTotal.WithLabelValues(string(pe.Stage), string(pe.Kind)).Inc()

	log = log.WithStage(string(pe.Stage))
	event := log.Error()
	if pe.Kind == pipeline.KindValidation || pe.Kind == pipeline.KindNotFound || pipeline.IsDuplicateTrend(pe) {
		event = log.Warn()
	}
	event.
		Str("state", string(StateFailed)).
		Str("code", pe.Code).
		Msg(pe.Message)

	return &Response{
		Success:    false,
		Error:      pe.Message,
		Code:       pe.Code,
		Stage:      string(pe.Stage),
		StatusCode: pe.StatusCode(),
		Err:        pe,
	}
}

func (a *Agent) transition(log *logger.Logger, state State) {
	log.Debug().Str("state", string(state)).Msg("Publish state")
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
