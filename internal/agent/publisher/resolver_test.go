package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendgist/pkg/logger"
)

type fakeRehoster struct {
	url   string
	err   error
	calls int
}

func (f *fakeRehoster) Rehost(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.url, f.err
}

func sp(s string) *string { return &s }

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name     string
		in       ImageInputs
		rehoster Rehoster
		wantURL  *string
		want     ImageSource
	}{
		{
			name: "trend image wins over everything",
			in: ImageInputs{
				TrendResolved:  true,
				TrendImage:     sp("https://img/x.png"),
				GroundingImage: sp("https://news/g.png"),
				ExplicitImage:  sp("https://caller/e.png"),
				GeneratedImage: sp("https://vendor/gen.png"),
			},
			wantURL: sp("https://img/x.png"),
			want:    ImageSourceTrend,
		},
		{
			name: "invalid trend image does not fall through",
			in: ImageInputs{
				TrendResolved:  true,
				TrendImage:     sp("not-a-url"),
				GroundingImage: sp("https://news/g.png"),
				ExplicitImage:  sp("https://caller/e.png"),
			},
			want: ImageSourceNone,
		},
		{
			name: "missing trend image does not fall through",
			in: ImageInputs{
				TrendResolved:  true,
				GroundingImage: sp("https://news/g.png"),
			},
			want: ImageSourceNone,
		},
		{
			name: "grounding before explicit",
			in: ImageInputs{
				GroundingImage: sp("https://news/g.png"),
				ExplicitImage:  sp("https://caller/e.png"),
			},
			wantURL: sp("https://news/g.png"),
			want:    ImageSourceGrounding,
		},
		{
			name: "explicit when grounding invalid",
			in: ImageInputs{
				GroundingImage: sp("ftp://news/g.png"),
				ExplicitImage:  sp("https://caller/e.png"),
			},
			wantURL: sp("https://caller/e.png"),
			want:    ImageSourceExplicit,
		},
		{
			name:     "generated image rehosted",
			in:       ImageInputs{GeneratedImage: sp("https://vendor/gen.png")},
			rehoster: &fakeRehoster{url: "https://cdn/durable.png"},
			wantURL:  sp("https://cdn/durable.png"),
			want:     ImageSourceGenerated,
		},
		{
			name:     "rehost failure keeps vendor url",
			in:       ImageInputs{GeneratedImage: sp("https://vendor/gen.png")},
			rehoster: &fakeRehoster{err: errors.New("bucket down")},
			wantURL:  sp("https://vendor/gen.png"),
			want:     ImageSourceGeneratedEphemeral,
		},
		{
			name:    "no rehoster keeps vendor url",
			in:      ImageInputs{GeneratedImage: sp("https://vendor/gen.png")},
			wantURL: sp("https://vendor/gen.png"),
			want:    ImageSourceGeneratedEphemeral,
		},
		{
			name: "nothing available",
			in:   ImageInputs{},
			want: ImageSourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveImage(context.Background(), tt.in, tt.rehoster, logger.Nop())
			assert.Equal(t, tt.want, got.Source)
			assert.Equal(t, tt.wantURL, got.URL)
		})
	}
}
