package publisher

import (
	"context"
	"strings"

	"github.com/trendgist/internal/media"
	"github.com/trendgist/pkg/logger"
)

// ImageSource records which rule picked the final image
type ImageSource string

const (
	ImageSourceTrend              ImageSource = "trend"
	ImageSourceGrounding          ImageSource = "grounding"
	ImageSourceExplicit           ImageSource = "explicit"
	ImageSourceGenerated          ImageSource = "generated"
	ImageSourceGeneratedEphemeral ImageSource = "generated_ephemeral"
	ImageSourceNone               ImageSource = "none"
)

// Rehoster copies an ephemeral image into durable storage
type Rehoster interface {
	Rehost(ctx context.Context, sourceURL string) (string, error)
}

// ImageInputs are the candidate images known at image_handling time
type ImageInputs struct {
	TrendResolved  bool
	TrendImage     *string
	GroundingImage *string
	ExplicitImage  *string
	GeneratedImage *string
}

// ImageDecision is the single image chosen for a gist
type ImageDecision struct {
	URL    *string
	Source ImageSource
}

// ResolveImage picks at most one image in strict priority order:
// linked trend, grounding article, caller-supplied, generated, none.
// A linked trend is authoritative: an invalid trend image yields no image
// rather than falling through to the other candidates.
func ResolveImage(ctx context.Context, in ImageInputs, rehoster Rehoster, log *logger.Logger) ImageDecision {
	if in.TrendResolved {
		if url, ok := valid(in.TrendImage); ok {
			return ImageDecision{URL: &url, Source: ImageSourceTrend}
		}
		return ImageDecision{Source: ImageSourceNone}
	}

	if url, ok := valid(in.GroundingImage); ok {
		return ImageDecision{URL: &url, Source: ImageSourceGrounding}
	}

	if url, ok := valid(in.ExplicitImage); ok {
		return ImageDecision{URL: &url, Source: ImageSourceExplicit}
	}

	if url, ok := valid(in.GeneratedImage); ok {
		if rehoster == nil {
			return ImageDecision{URL: &url, Source: ImageSourceGeneratedEphemeral}
		}
		durable, err := rehoster.Rehost(ctx, url)
		if err != nil || !media.ValidURL(durable) {
			log.Warn().Err(err).Msg("Failed to rehost generated image, using vendor URL")
			return ImageDecision{URL: &url, Source: ImageSourceGeneratedEphemeral}
		}
		return ImageDecision{URL: &durable, Source: ImageSourceGenerated}
	}

	return ImageDecision{Source: ImageSourceNone}
}

func valid(raw *string) (string, bool) {
	if raw == nil || !media.ValidURL(*raw) {
		return "", false
	}
	return strings.TrimSpace(*raw), true
}
