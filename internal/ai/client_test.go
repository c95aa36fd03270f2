package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.AnthropicConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Model:     "claude-test",
		MaxTokens: 256,
	}, nil, logger.Nop())
	require.NoError(t, err)
	return client
}

func messageResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-test",
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 20},
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.AnthropicConfig{}, nil, logger.Nop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCompleteWithJSON(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageResponse(`{"headline":"h"}`))
	})

	out, err := client.CompleteWithJSON(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"headline":"h"}`, out)
	assert.Equal(t, "claude-test", body["model"])
}

func TestCompleteVendorErrorNoRetry(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
	})

	_, err := client.Complete(context.Background(), "system", "user")
	require.Error(t, err)

	var vendorErr *VendorError
	require.True(t, errors.As(err, &vendorErr))
	assert.Equal(t, http.StatusServiceUnavailable, vendorErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Headline string `json:"headline"`
	}

	tests := []struct {
		name      string
		response  string
		want      string
		malformed bool
	}{
		{"plain", `{"headline":"a"}`, "a", false},
		{"fenced", "```json\n{\"headline\":\"b\"}\n```", "b", false},
		{"prose only", "I cannot help with that.", "", true},
		{"truncated", `{"headline":"c"`, "", true},
		{"array", `["a"]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := DecodeJSON(tt.response, &p)
			if tt.malformed {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Headline)
		})
	}
}
