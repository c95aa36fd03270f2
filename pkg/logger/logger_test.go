package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log := New(Config{Level: "debug", Format: "json", Output: path})

	log.WithComponent("publisher").
		WithTopic("lakers").
		WithTrendID("t-1").
		WithStage("db_insert").
		Info().Msg("hello")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "publisher", entry["component"])
	assert.Equal(t, "lakers", entry["topic"])
	assert.Equal(t, "t-1", entry["trend_id"])
	assert.Equal(t, "db_insert", entry["stage"])
	assert.Equal(t, "hello", entry["message"])
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log := New(Config{Level: "chatty", Format: "json", Output: path})

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hidden")
	assert.Contains(t, string(raw), "shown")
}
