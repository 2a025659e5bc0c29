// Package session hosts diagram engines behind goroutines so that many
// callers can drive one engine without sharing its state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"constellations/application/engine"
	pkgerrors "constellations/pkg/errors"

	"go.uber.org/zap"
)

// RunnerConfig controls the clocks of one runner.
type RunnerConfig struct {
	TickInterval  time.Duration
	PaintInterval time.Duration
	CommandBuffer int
}

// DefaultRunnerConfig ticks at roughly 60 Hz and paints at roughly 30 Hz.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		TickInterval:  16 * time.Millisecond,
		PaintInterval: 33 * time.Millisecond,
		CommandBuffer: 64,
	}
}

type command struct {
	fn    func(*engine.Engine) error
	reply chan error
}

// Runner owns one engine. The tick clock, the paint clock and every command
// are handled by a single goroutine, so a tick never overlaps a paint and
// commands observe a consistent engine.
type Runner struct {
	id      string
	created time.Time
	engine  *engine.Engine
	cfg     RunnerConfig
	logger  *zap.Logger

	cmds      chan command
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewRunner wraps eng. Call Start to begin ticking.
func NewRunner(id string, eng *engine.Engine, cfg RunnerConfig, logger *zap.Logger) *Runner {
	if cfg.TickInterval <= 0 || cfg.PaintInterval <= 0 {
		defaults := DefaultRunnerConfig()
		cfg.TickInterval, cfg.PaintInterval = defaults.TickInterval, defaults.PaintInterval
	}
	if cfg.CommandBuffer < 0 {
		cfg.CommandBuffer = 0
	}
	return &Runner{
		id:      id,
		created: time.Now(),
		engine:  eng,
		cfg:     cfg,
		logger:  logger.With(zap.String("session_id", id)),
		cmds:    make(chan command, cfg.CommandBuffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the session id.
func (r *Runner) ID() string {
	return r.id
}

// CreatedAt returns when the runner was created.
func (r *Runner) CreatedAt() time.Time {
	return r.created
}

// Start launches the runner goroutine. Calling it twice has no effect.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		go r.loop()
	})
}

// Done is closed once the runner goroutine has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Close stops the clocks, closes the engine and waits for the goroutine to
// exit. It is safe to call more than once.
func (r *Runner) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.Start()
	<-r.done
}

// Do runs fn on the runner goroutine and returns its error. It fails when ctx
// ends first or the runner is closed.
func (r *Runner) Do(ctx context.Context, fn func(*engine.Engine) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}

	select {
	case r.cmds <- cmd:
	case <-r.stop:
		return r.closedError()
	case <-ctx.Done():
		return pkgerrors.NewTimeoutError("session " + r.id).WithCause(ctx.Err())
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-r.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return r.closedError()
		}
	case <-ctx.Done():
		return pkgerrors.NewTimeoutError("session " + r.id).WithCause(ctx.Err())
	}
}

func (r *Runner) closedError() error {
	return pkgerrors.NewUnavailableError("session " + r.id)
}

func (r *Runner) loop() {
	defer close(r.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tick := time.NewTicker(r.cfg.TickInterval)
	defer tick.Stop()
	paint := time.NewTicker(r.cfg.PaintInterval)
	defer paint.Stop()

	r.logger.Debug("Session runner started",
		zap.Duration("tick", r.cfg.TickInterval),
		zap.Duration("paint", r.cfg.PaintInterval))

	dirty := true
	for {
		select {
		case <-r.stop:
			r.drain()
			r.engine.Close()
			r.logger.Debug("Session runner stopped")
			return

		case cmd := <-r.cmds:
			cmd.reply <- r.execute(cmd.fn)
			dirty = true

		case <-tick.C:
			if r.engine.Tick() {
				dirty = true
			}

		case now := <-paint.C:
			if !dirty && !r.engine.Animating() && !r.engine.MeasurementPending() {
				continue
			}
			if _, err := r.engine.Paint(ctx, now); err != nil {
				r.logger.Warn("Paint failed", zap.Error(err))
			}
			dirty = false
		}
	}
}

// drain rejects commands queued behind the stop signal.
func (r *Runner) drain() {
	for {
		select {
		case cmd := <-r.cmds:
			cmd.reply <- r.closedError()
		default:
			return
		}
	}
}

// execute runs one command and turns a panic into an error so a faulty
// command cannot take the session down.
func (r *Runner) execute(fn func(*engine.Engine) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Session command panicked", zap.Any("panic", rec))
			err = pkgerrors.NewInternalError(fmt.Sprintf("session command failed: %v", rec))
		}
	}()
	return fn(r.engine)
}
