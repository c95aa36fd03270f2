package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/pkg/logger"
)

// Putter stores bytes under a name and returns their public URL
type Putter interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// GCS uploads objects to a Google Cloud Storage bucket
type GCS struct {
	service       *storage.Service
	bucket        string
	publicBaseURL string
	log           *logger.Logger
}

// NewGCS creates a GCS uploader from configuration
func NewGCS(ctx context.Context, cfg config.ObjectStoreConfig, log *logger.Logger) (*GCS, error) {
	var opts []option.ClientOption

	// Try service account JSON first (for env var injection)
	if cfg.ServiceAccountJSON != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.ServiceAccountJSON), storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account json: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	// Neither set: fall back to application default credentials

	srv, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	return &GCS{
		service:       srv,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:           log.WithComponent("gcs"),
	}, nil
}

// Put uploads data as a publicly cacheable object
func (g *GCS) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	obj := &storage.Object{
		Name:         name,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	}

	_, err := g.service.Objects.Insert(g.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	g.log.Debug().Str("object", name).Int("size_bytes", len(data)).Msg("Uploaded object")
	return g.PublicURL(name), nil
}

// PublicURL returns the URL an object is served from
func (g *GCS) PublicURL(name string) string {
	if g.publicBaseURL != "" {
		return g.publicBaseURL + "/" + name
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name)
}
