// Package config loads process configuration from the environment and layout
// tuning from YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string

	// Layout tuning file, hot reloaded when set
	LayoutConfigPath string

	// Session runner configuration
	TickInterval  time.Duration
	PaintInterval time.Duration
	MaxSessions   int

	// Snapshot source used by the render command
	SnapshotSourceURL string
	SourceTimeout     time.Duration

	// HTTP and WebSocket
	CORSOrigins         []string
	WSMessagesPerSecond float64
	WSBurst             int

	// Rendered documents are cached for this many seconds. Zero disables it.
	DocumentCacheTTL int

	// Feature flags
	EnableMetrics   bool
	EnableTracing   bool
	TracingEndpoint string
	TracingSampling float64
	ServiceVersion  string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		LayoutConfigPath: getEnv("LAYOUT_CONFIG_PATH", ""),

		TickInterval:  getEnvDuration("TICK_INTERVAL", 16*time.Millisecond),
		PaintInterval: getEnvDuration("PAINT_INTERVAL", 33*time.Millisecond),
		MaxSessions:   getEnvInt("MAX_SESSIONS", 256),

		SnapshotSourceURL: getEnv("SNAPSHOT_SOURCE_URL", ""),
		SourceTimeout:     getEnvDuration("SOURCE_TIMEOUT", 10*time.Second),

		CORSOrigins:         getEnvList("CORS_ORIGINS", []string{"*"}),
		WSMessagesPerSecond: getEnvFloat("WS_MESSAGES_PER_SECOND", 60),
		WSBurst:             getEnvInt("WS_BURST", 120),

		DocumentCacheTTL: getEnvInt("DOCUMENT_CACHE_TTL", 30),

		EnableMetrics:   getEnvBool("ENABLE_METRICS", true),
		EnableTracing:   getEnvBool("ENABLE_TRACING", false),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4317"),
		TracingSampling: getEnvFloat("TRACING_SAMPLING", 1.0),
		ServiceVersion:  getEnv("SERVICE_VERSION", "dev"),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.PaintInterval <= 0 {
		return fmt.Errorf("PAINT_INTERVAL must be positive")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("MAX_SESSIONS cannot be negative")
	}
	if c.WSMessagesPerSecond <= 0 {
		return fmt.Errorf("WS_MESSAGES_PER_SECOND must be positive")
	}
	if c.DocumentCacheTTL < 0 {
		return fmt.Errorf("DOCUMENT_CACHE_TTL cannot be negative")
	}
	if c.TracingSampling < 0 || c.TracingSampling > 1 {
		return fmt.Errorf("TRACING_SAMPLING must be between 0 and 1")
	}
	if c.EnableTracing && c.TracingEndpoint == "" {
		return fmt.Errorf("TRACING_ENDPOINT is required when tracing is enabled")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("16ms") or bare milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
