package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/pkg/logger"
	"github.com/trendgist/pkg/ratelimit"
)

// ErrDisabled is returned when image generation is switched off
var ErrDisabled = errors.New("image generation disabled")

// Client calls an OpenAI-compatible images API. The returned URLs are
// vendor-hosted and expire, so callers rehost them.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	enabled    bool
	httpClient *http.Client
	limiter    *ratelimit.MultiLimiter
	log        *logger.Logger
}

// NewClient creates a new image generation client
func NewClient(cfg config.ImageGenConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	size := cfg.Size
	if size == "" {
		size = "256x256"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		size:    size,
		enabled: cfg.Enabled && cfg.APIKey != "",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		log:     log.WithComponent("imagegen"),
	}
}

type generateRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate creates one image for the prompt and returns its temporary URL
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url, err := c.generate(ctx, prompt)
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrDisabled) {
			status = "disabled"
		}
	}
	metrics.ImageGenerationsTotal.WithLabelValues(status).Inc()
	return url, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	if err := c.limiter.Wait(ctx, ratelimit.LimiterImageGen); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   c.size,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("size", c.size).Msg("Requesting generated image")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(raw))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("API error: %s", result.Error.Message)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("API returned no image")
	}

	c.log.Info().Msg("Generated fallback image")
	return result.Data[0].URL, nil
}
