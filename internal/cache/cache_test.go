package cache

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	applog "github.com/trendgist/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSQLDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cache.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.CacheEntry{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		topic  string
		want   string
	}{
		{"lowercases", PrefixGist, "Drake Drops", "gist:drake-drops"},
		{"collapses whitespace", PrefixSources, "  Lakers \t\n trade  news ", "sources:lakers-trade-news"},
		{"keeps punctuation", PrefixGist, "AI: what's next?", "gist:ai:-what's-next?"},
		{"empty", PrefixGist, "   ", "gist:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.prefix, tt.topic))
		})
	}
}

func TestKeyTruncates(t *testing.T) {
	topic := strings.Repeat("é", 250)
	key := strings.TrimPrefix(Key(PrefixGist, topic), "gist:")
	assert.Equal(t, maxKeyRunes+1+digestLen, len([]rune(key)))
	assert.Equal(t, key, strings.TrimPrefix(Key(PrefixGist, topic), "gist:"), "same topic gives the same key")
}

func TestKeyAtBoundIsNotSuffixed(t *testing.T) {
	topic := strings.Repeat("a", maxKeyRunes)
	assert.Equal(t, "gist:"+topic, Key(PrefixGist, topic))
}

func TestKeyDistinguishesLongTopicsWithSharedPrefix(t *testing.T) {
	prefix := strings.Repeat("x", 110)
	a := prefix + " lakers trade rumors"
	b := prefix + " celtics playoff odds"

	for _, p := range []string{PrefixGist, PrefixSources} {
		keyA := Key(p, a)
		keyB := Key(p, b)
		assert.NotEqual(t, keyA, keyB)
		assert.True(t, strings.HasPrefix(keyA, p+":"+strings.Repeat("x", maxKeyRunes)))
		assert.LessOrEqual(t, len([]rune(keyA)), len(p)+1+maxKeyRunes+1+digestLen)
	}

	assert.Equal(t, Key(PrefixGist, a), Key(PrefixGist, "  "+strings.ToUpper(a)+" "), "normalization precedes the digest")
}

// storeContract exercises behavior every Store must share
func storeContract(t *testing.T, store Store, advance func(time.Duration)) {
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "gist:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "gist:a", []byte("first"), time.Minute))
	require.NoError(t, store.Set(ctx, "gist:a", []byte("second"), time.Minute))

	val, ok, err := store.Get(ctx, "gist:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(val))

	advance(2 * time.Minute)

	_, ok, err = store.Get(ctx, "gist:a")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries must not be returned")

	require.NoError(t, store.Set(ctx, "gist:b", []byte("x"), time.Minute))
	require.NoError(t, store.Delete(ctx, "gist:b"))
	_, ok, err = store.Get(ctx, "gist:b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "gist:never-set"))
}

func TestMemoryStore(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemory().WithClock(clock.Now)
	storeContract(t, store, clock.Advance)
}

func TestMemoryLazyDelete(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemory().WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	clock.Advance(time.Second)
	assert.Equal(t, 1, store.Len())

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedis(client)
	t.Cleanup(func() { _ = store.Close() })

	storeContract(t, store, mr.FastForward)
}

func TestSQLStore(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	db := newSQLDB(t)
	store := NewSQL(db).WithClock(clock.Now)
	storeContract(t, store, clock.Advance)
}

func TestSQLStoreDeletesExpiredRow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	db := newSQLDB(t)
	store := NewSQL(db).WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sources:x", []byte("[]"), time.Hour))
	clock.Advance(time.Hour)

	_, ok, err := store.Get(ctx, "sources:x")
	require.NoError(t, err)
	assert.False(t, ok)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	in := models.GeneratedContent{Headline: "h", Context: "c", Narration: "n", ImageKeyword: "k"}
	require.NoError(t, SetJSON(ctx, store, "gist:x", in, time.Hour))

	var out models.GeneratedContent
	ok, err := GetJSON(ctx, store, "gist:x", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, store.Set(ctx, "gist:bad", []byte("{not json"), time.Hour))
	ok, err = GetJSON(ctx, store, "gist:bad", &out)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewSelectsDriver(t *testing.T) {
	log := applog.Nop()

	store, err := New(&config.Config{Cache: config.CacheConfig{Driver: "memory"}}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)

	store, err = New(&config.Config{Cache: config.CacheConfig{Driver: "sql"}}, newSQLDB(t), log)
	require.NoError(t, err)
	assert.IsType(t, &SQL{}, store)

	mr := miniredis.RunT(t)
	store, err = New(&config.Config{
		Cache: config.CacheConfig{Driver: "redis"},
		Redis: config.RedisConfig{URL: "redis://" + mr.Addr()},
	}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, store)

	_, err = New(&config.Config{Cache: config.CacheConfig{Driver: "sql"}}, nil, log)
	assert.Error(t, err)

	_, err = New(&config.Config{Cache: config.CacheConfig{Driver: "etcd"}}, nil, log)
	assert.Error(t, err)
}
