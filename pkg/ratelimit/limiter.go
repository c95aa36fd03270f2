package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters for different services
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for a service
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event.
// A nil MultiLimiter or an unregistered name never blocks.
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return nil
	}

	return limiter.Wait(ctx)
}

// Default rate limiter names
const (
	LimiterAnthropic = "anthropic"
	LimiterImageGen  = "imagegen"
	LimiterNewsAPI   = "newsapi"
	LimiterGNews     = "gnews"
	LimiterNewsData  = "newsdata"
	LimiterRSS       = "rss"
)

// Limits holds per-minute budgets for the outbound services
type Limits struct {
	AnthropicPerMinute int
	ImageGenPerMinute  int
	ProviderPerMinute  int
}

// NewLimiter creates a limiter from configured budgets
func NewLimiter(l Limits) *MultiLimiter {
	m := NewMultiLimiter()

	if l.AnthropicPerMinute > 0 {
		m.AddLimiter(LimiterAnthropic, float64(l.AnthropicPerMinute)/60, 2)
	}

	// Image generation is the expensive path, keep the burst at one
	if l.ImageGenPerMinute > 0 {
		m.AddLimiter(LimiterImageGen, float64(l.ImageGenPerMinute)/60, 1)
	}

	if l.ProviderPerMinute > 0 {
		perSecond := float64(l.ProviderPerMinute) / 60
		for _, name := range []string{LimiterNewsAPI, LimiterGNews, LimiterNewsData, LimiterRSS} {
			m.AddLimiter(name, perSecond, 5)
		}
	}

	return m
}
