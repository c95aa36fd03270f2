package objectstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendgist/pkg/logger"
)

type fakePutter struct {
	name        string
	contentType string
	data        []byte
	err         error
}

func (f *fakePutter) Put(_ context.Context, name, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.name, f.contentType, f.data = name, contentType, data
	return "https://cdn.example.com/" + name, nil
}

func imageServer(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRehost(t *testing.T) {
	srv := imageServer(t, http.StatusOK, "image/jpeg", "jpegbytes")
	putter := &fakePutter{}
	r := NewRehoster(putter, "/gists/ai/", time.Second, logger.Nop())

	durable, err := r.Rehost(context.Background(), srv.URL+"/tmp.jpg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(putter.name, "gists/ai/"))
	assert.True(t, strings.HasSuffix(putter.name, ".jpg"))
	assert.Equal(t, "image/jpeg", putter.contentType)
	assert.Equal(t, "jpegbytes", string(putter.data))
	assert.Equal(t, "https://cdn.example.com/"+putter.name, durable)
}

func TestRehostFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
		body   string
		putErr error
	}{
		{"expired vendor url", http.StatusForbidden, "text/plain", "expired", nil},
		{"not an image", http.StatusOK, "text/html", "<html></html>", nil},
		{"empty body", http.StatusOK, "image/png", "", nil},
		{"upload fails", http.StatusOK, "image/png", "png", errors.New("bucket unavailable")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := imageServer(t, tt.status, tt.ctype, tt.body)
			r := NewRehoster(&fakePutter{err: tt.putErr}, "", time.Second, logger.Nop())
			_, err := r.Rehost(context.Background(), srv.URL)
			assert.Error(t, err)
		})
	}
}

func TestPublicURL(t *testing.T) {
	g := &GCS{bucket: "media"}
	assert.Equal(t, "https://storage.googleapis.com/media/a/b.png", g.PublicURL("a/b.png"))

	g.publicBaseURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/a/b.png", g.PublicURL("a/b.png"))
}
