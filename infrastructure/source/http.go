package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"constellations/application/snapshot"
	pkgerrors "constellations/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// HTTPSourceConfig configures the HTTP fetch and its circuit breaker.
type HTTPSourceConfig struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string

	// Circuit breaker settings
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultHTTPSourceConfig returns the default configuration for url.
func DefaultHTTPSourceConfig(url string) HTTPSourceConfig {
	return HTTPSourceConfig{
		URL:              url,
		Timeout:          10 * time.Second,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// HTTPSource fetches snapshot documents over HTTP behind a circuit breaker.
type HTTPSource struct {
	cfg    HTTPSourceConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// errServer marks responses that count as upstream failures.
var errServer = errors.New("snapshot source server error")

// NewHTTPSource creates an HTTP source.
func NewHTTPSource(cfg HTTPSourceConfig, logger *zap.Logger) *HTTPSource {
	s := &HTTPSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "snapshot-source",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Client errors are the caller's problem, not the upstream's
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, errServer)
		},
	})
	return s
}

// State reports the breaker state.
func (s *HTTPSource) State() gobreaker.State {
	return s.cb.State()
}

// Fetch downloads and decodes the document.
func (s *HTTPSource) Fetch(ctx context.Context) (*snapshot.Document, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.NewUnavailableError("snapshot source").WithCause(err)
		}
		if errors.Is(err, errServer) {
			return nil, pkgerrors.NewExternalError("snapshot source", err)
		}
		return nil, err
	}
	return result.(*snapshot.Document), nil
}

func (s *HTTPSource) fetch(ctx context.Context) (*snapshot.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid snapshot URL: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errServer, err)
	}
	defer resp.Body.Close()

	s.logger.Debug("Snapshot fetched",
		zap.String("url", s.cfg.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", errServer, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.NewNotFoundError("snapshot at " + s.cfg.URL)
	case resp.StatusCode >= 400:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("snapshot source rejected request: status %d", resp.StatusCode))
	}
	return snapshot.Decode(resp.Body)
}
