package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trendgist/pkg/logger"
)

// maxImageBytes bounds downloaded images
const maxImageBytes = 10 << 20

// Rehoster copies vendor-hosted images into durable storage
type Rehoster struct {
	putter     Putter
	prefix     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewRehoster creates a rehoster. timeout bounds the download and the upload.
func NewRehoster(putter Putter, prefix string, timeout time.Duration, log *logger.Logger) *Rehoster {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Rehoster{
		putter: putter,
		prefix: strings.Trim(prefix, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.WithComponent("rehoster"),
	}
}

// Rehost downloads the image at sourceURL and stores it, returning the durable URL
func (r *Rehoster) Rehost(ctx context.Context, sourceURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "" {
		mediaType = "image/png"
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("unexpected content type %q", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty image body")
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	name := uuid.NewString() + extensionFor(mediaType)
	if r.prefix != "" {
		name = path.Join(r.prefix, name)
	}

	durable, err := r.putter.Put(ctx, name, mediaType, data)
	if err != nil {
		return "", err
	}

	r.log.Info().
		Str("object", name).
		Int("size_bytes", len(data)).
		Msg("Rehosted generated image")

	return durable, nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
