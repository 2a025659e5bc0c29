package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "constellations/pkg/errors"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const document = `{"nodes":[{"id":"P","type":"person","title":"P"}],"links":[]}`

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o644))

	doc, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "P", doc.Nodes[0].ID)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNewPicksSourceByLocation(t *testing.T) {
	assert.IsType(t, &HTTPSource{}, New("https://example.com/graph.json", time.Second, zap.NewNop()))
	assert.IsType(t, &FileSource{}, New("graph.json", time.Second, zap.NewNop()))
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		_, _ = w.Write([]byte(document))
	}))
	defer srv.Close()

	cfg := DefaultHTTPSourceConfig(srv.URL)
	cfg.Headers = map[string]string{"X-Test": "yes"}
	doc, err := NewHTTPSource(cfg, zap.NewNop()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 1)
}

func TestHTTPSourceClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, "", pkgerrors.IsNotFound},
		{"bad request", http.StatusBadRequest, "", pkgerrors.IsValidation},
		{"malformed body", http.StatusOK, "{", pkgerrors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src := NewHTTPSource(DefaultHTTPSourceConfig(srv.URL), zap.NewNop())
			for i := 0; i < 5; i++ {
				_, err := src.Fetch(context.Background())
				require.Error(t, err)
				assert.True(t, tt.check(err), "got %v", err)
			}
			// client errors never trip the breaker
			assert.Equal(t, gobreaker.StateClosed, src.State())
		})
	}
}

func TestHTTPSourceBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultHTTPSourceConfig(srv.URL)
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.OpenTimeout = time.Minute
	src := NewHTTPSource(cfg, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := src.Fetch(context.Background())
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal), "got %v", err)
	}
	assert.Equal(t, gobreaker.StateOpen, src.State())

	_, err := src.Fetch(context.Background())
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	assert.Equal(t, int32(2), calls.Load())
}
