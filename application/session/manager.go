package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"constellations/application/engine"
	"constellations/application/ports"
	"constellations/domain/config"
	pkgerrors "constellations/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SceneFactory builds the scene a new session paints into.
type SceneFactory func(sessionID string) ports.Scene

// ListenerFactory builds the listener a new session reports to.
type ListenerFactory func(sessionID string) ports.Listener

// Info describes a live session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager keeps the live sessions.
type Manager struct {
	mu      sync.RWMutex
	runners map[string]*Runner
	layout  *config.LayoutConfig

	runnerCfg   RunnerConfig
	maxSessions int
	scenes      SceneFactory
	listeners   ListenerFactory
	metrics     ports.Metrics
	logger      *zap.Logger
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithSceneFactory sets how sessions get their scene.
func WithSceneFactory(f SceneFactory) ManagerOption {
	return func(m *Manager) { m.scenes = f }
}

// WithListenerFactory sets how sessions get their listener.
func WithListenerFactory(f ListenerFactory) ManagerOption {
	return func(m *Manager) { m.listeners = f }
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) { m.maxSessions = n }
}

// WithSessionMetrics sets the metrics sink shared by every engine.
func WithSessionMetrics(metrics ports.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates an empty manager.
func NewManager(layout *config.LayoutConfig, runnerCfg RunnerConfig, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if layout == nil {
		layout = config.DefaultLayoutConfig()
	}
	m := &Manager{
		runners:   make(map[string]*Runner),
		layout:    layout,
		runnerCfg: runnerCfg,
		metrics:   ports.NoopMetrics{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with the given presentation options. An empty
// id gets a fresh UUID.
func (m *Manager) Create(id string, opts engine.Options) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := m.runners[id]; exists {
		return nil, pkgerrors.NewConflictError("session " + id + " already exists")
	}

	if m.maxSessions > 0 && len(m.runners) >= m.maxSessions {
		return nil, pkgerrors.NewConflictError("session limit reached").
			WithDetails(map[string]interface{}{"max_sessions": m.maxSessions})
	}

	logger := m.logger.With(zap.String("session_id", id))

	engineOpts := []engine.Option{
		engine.WithOptions(opts),
		engine.WithMetrics(m.metrics),
	}
	if m.scenes != nil {
		if scene := m.scenes(id); scene != nil {
			engineOpts = append(engineOpts, engine.WithScene(scene))
		}
	}
	if m.listeners != nil {
		if listener := m.listeners(id); listener != nil {
			engineOpts = append(engineOpts, engine.WithListener(listener))
		}
	}

	eng := engine.New(m.layout.Clone(), logger, engineOpts...)
	runner := NewRunner(id, eng, m.runnerCfg, m.logger)
	runner.Start()

	m.runners[id] = runner
	m.metrics.SessionOpened()
	m.logger.Info("Session created",
		zap.String("session_id", id),
		zap.String("mode", opts.Mode.String()),
		zap.Int("sessions", len(m.runners)))
	return runner, nil
}

// Get returns the runner for id.
func (m *Manager) Get(id string) (*Runner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runner, ok := m.runners[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("session " + id)
	}
	return runner, nil
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.runners))
	for _, r := range m.runners {
		infos = append(infos, Info{ID: r.ID(), CreatedAt: r.CreatedAt()})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runners)
}

// Close tears down one session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	runner, ok := m.runners[id]
	delete(m.runners, id)
	m.mu.Unlock()

	if !ok {
		return pkgerrors.NewNotFoundError("session " + id)
	}
	runner.Close()
	m.metrics.SessionClosed()
	m.logger.Info("Session closed", zap.String("session_id", id))
	return nil
}

// CloseAll tears down every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	runners := m.runners
	m.runners = make(map[string]*Runner)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(r *Runner) {
			defer wg.Done()
			r.Close()
			m.metrics.SessionClosed()
		}(r)
	}
	wg.Wait()
	if len(runners) > 0 {
		m.logger.Info("All sessions closed", zap.Int("count", len(runners)))
	}
}

// LayoutConfig returns the tuning new sessions start with.
func (m *Manager) LayoutConfig() *config.LayoutConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layout
}

// ApplyConfig validates cfg, makes it the default for new sessions and pushes
// it into every live session. Sessions that fail to take it are logged and
// skipped.
func (m *Manager) ApplyConfig(ctx context.Context, cfg *config.LayoutConfig) error {
	if err := cfg.Validate(); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	m.mu.Lock()
	m.layout = cfg
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.mu.Unlock()

	for _, r := range runners {
		next := cfg.Clone()
		err := r.Do(ctx, func(e *engine.Engine) error {
			e.SetConfig(next)
			return nil
		})
		if err != nil {
			m.logger.Warn("Session did not accept layout config",
				zap.String("session_id", r.ID()),
				zap.Error(err))
		}
	}
	m.logger.Info("Layout config applied", zap.Int("sessions", len(runners)))
	return nil
}
