package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	domainconfig "constellations/domain/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 33*time.Millisecond, cfg.PaintInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.EnableTracing)
	assert.Equal(t, 30, cfg.DocumentCacheTTL)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TICK_INTERVAL", "8ms")
	t.Setenv("PAINT_INTERVAL", "50")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ENABLE_TRACING", "yes")
	t.Setenv("MAX_SESSIONS", "4")
	t.Setenv("WS_MESSAGES_PER_SECOND", "12.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.PaintInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, 4, cfg.MaxSessions)
	assert.Equal(t, 12.5, cfg.WSMessagesPerSecond)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.ServerAddress = "" }},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }},
		{"zero paint", func(c *Config) { c.PaintInterval = 0 }},
		{"negative sessions", func(c *Config) { c.MaxSessions = -1 }},
		{"zero message rate", func(c *Config) { c.WSMessagesPerSecond = 0 }},
		{"negative cache ttl", func(c *Config) { c.DocumentCacheTTL = -1 }},
		{"sampling above one", func(c *Config) { c.TracingSampling = 1.5 }},
		{"tracing without endpoint", func(c *Config) { c.EnableTracing = true; c.TracingEndpoint = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLayoutConfigOverlaysDefaults(t *testing.T) {
	cfg, err := ParseLayoutConfig([]byte(`
forces:
  link_distance: 120
viewport:
  key_pan_duration: 500ms
`))
	require.NoError(t, err)

	defaults := domainconfig.DefaultLayoutConfig()
	assert.Equal(t, 120.0, cfg.Forces.LinkDistance)
	assert.Equal(t, defaults.Forces.ChargeStrength, cfg.Forces.ChargeStrength)
	assert.Equal(t, 500*time.Millisecond, cfg.Viewport.KeyPanDuration)
	assert.Equal(t, defaults.Geometry, cfg.Geometry)
}

func TestParseLayoutConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "forces:\n  link_distanse: 120\n"},
		{"out of range", "simulation:\n  velocity_decay: 0.2\n"},
		{"wrong type", "forces:\n  link_distance: far\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayoutConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEmptyLayoutFileGivesDefaults(t *testing.T) {
	cfg, err := ParseLayoutConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, domainconfig.DefaultLayoutConfig(), cfg)

	cfg, err = LoadLayoutConfig("")
	require.NoError(t, err)
	assert.Equal(t, domainconfig.DefaultLayoutConfig(), cfg)
}

func TestMarshalLayoutConfigRoundTrip(t *testing.T) {
	data, err := MarshalLayoutConfig(domainconfig.DefaultLayoutConfig())
	require.NoError(t, err)

	cfg, err := ParseLayoutConfig(data)
	require.NoError(t, err)
	assert.Equal(t, domainconfig.DefaultLayoutConfig(), cfg)
}

func TestLayoutWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forces:\n  link_distance: 100\n"), 0o644))

	w, err := NewLayoutWatcher(path, zap.NewNop())
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)
	assert.Equal(t, 100.0, w.Current().Forces.LinkDistance)

	var mu sync.Mutex
	var seen []float64
	w.OnChange(func(_ context.Context, cfg *domainconfig.LayoutConfig) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, cfg.Forces.LinkDistance)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.NoError(t, os.WriteFile(path, []byte("forces:\n  link_distance: 150\n"), 0o644))
	assert.Eventually(t, func() bool {
		return w.Current().Forces.LinkDistance == 150
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	require.NotEmpty(t, seen)
	assert.Equal(t, 150.0, seen[len(seen)-1])
	mu.Unlock()

	// an invalid edit keeps the last good config
	select {
	case <-w.Reloads():
	default:
	}
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  velocity_decay: 5\n"), 0o644))
	select {
	case <-w.Reloads():
	case <-time.After(2 * time.Second):
		t.Fatal("no reload attempt")
	}
	assert.Equal(t, 150.0, w.Current().Forces.LinkDistance)
}

func TestNewLayoutWatcherRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forces: [\n"), 0o644))

	_, err := NewLayoutWatcher(path, zap.NewNop())
	assert.Error(t, err)
}
