// Package cache provides the TTL key/value store used by the aggregator and
// generator to skip repeated vendor calls for the same topic.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/pkg/logger"
)

// Key prefixes
const (
	PrefixSources = "sources"
	PrefixGist    = "gist"
)

// maxKeyRunes bounds the normalized topic part of a key. Longer topics are
// cut and suffixed with a digest of the full normalized form.
const maxKeyRunes = 100

// digestLen is the number of hex characters kept from the topic digest
const digestLen = 8

// Store is a key/value store with per-entry expiry.
// Get never returns an entry past its expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds a namespaced key from a prefix and a normalized topic
func Key(prefix, topic string) string {
	return prefix + ":" + Normalize(topic)
}

// Normalize lowercases the topic and replaces whitespace runs with a hyphen.
// Results longer than maxKeyRunes are truncated and suffixed with a short
// SHA-256 digest of the untruncated form, so distinct topics keep distinct keys.
func Normalize(topic string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		if unicode.IsSpace(r) {
			if inSpace {
				continue
			}
			inSpace = true
			r = '-'
		} else {
			inSpace = false
		}
		b.WriteRune(r)
	}

	full := b.String()
	runes := []rune(full)
	if len(runes) <= maxKeyRunes {
		return full
	}
	sum := sha256.Sum256([]byte(full))
	return string(runes[:maxKeyRunes]) + "-" + hex.EncodeToString(sum[:])[:digestLen]
}

// GetJSON loads and decodes a cached value into dst
func GetJSON(ctx context.Context, s Store, key string, dst interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// New selects the store implementation from configuration.
// db is only required for the sql driver.
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger) (Store, error) {
	log = log.WithComponent("cache")

	switch cfg.Cache.Driver {
	case "", "memory":
		log.Info().Msg("Using in-memory cache")
		return NewMemory(), nil
	case "redis":
		store, err := NewRedisFromURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		log.Info().Msg("Using redis cache")
		return store, nil
	case "sql":
		if db == nil {
			return nil, fmt.Errorf("sql cache driver requires a database handle")
		}
		log.Info().Msg("Using sql cache")
		return NewSQL(db), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}
