package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"constellations/application/engine"
	"constellations/application/ports"
	"constellations/domain/config"
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastRunnerConfig() RunnerConfig {
	return RunnerConfig{TickInterval: time.Millisecond, PaintInterval: 2 * time.Millisecond, CommandBuffer: 8}
}

// frameRecorder is a scene that keeps the latest frame.
type frameRecorder struct {
	mu     sync.Mutex
	last   *ports.Frame
	frames int
}

func (s *frameRecorder) Commit(_ context.Context, f *ports.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = f
	s.frames++
	return nil
}

func (s *frameRecorder) latest() *ports.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func testSnapshot() ([]*entities.Node, []*entities.Link) {
	year := 1990
	event := entities.NewNode("E1", valueobjects.CategoryThing, "Event")
	event.Year = &year
	nodes := []*entities.Node{
		entities.NewNode("P", valueobjects.CategoryPerson, "Person"),
		event,
	}
	links := []*entities.Link{entities.NewLink("", "P", "E1", "")}
	return nodes, links
}

func TestRunnerPaintsAfterSnapshot(t *testing.T) {
	scene := &frameRecorder{}
	eng := engine.New(config.DefaultLayoutConfig(), zap.NewNop(), engine.WithScene(scene))
	runner := NewRunner("s1", eng, fastRunnerConfig(), zap.NewNop())
	runner.Start()
	defer runner.Close()

	nodes, links := testSnapshot()
	err := runner.Do(context.Background(), func(e *engine.Engine) error {
		_, err := e.ApplySnapshot(nodes, links)
		return err
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		f := scene.latest()
		return f != nil && len(f.Nodes) == 2 && len(f.Links) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func frameX(f *ports.Frame, id valueobjects.NodeID) (float64, bool) {
	if f == nil {
		return 0, false
	}
	for _, n := range f.Nodes {
		if n.ID == id {
			return n.X, true
		}
	}
	return 0, false
}

func TestRunnerRepaintsChronologicalRepin(t *testing.T) {
	scene := &frameRecorder{}
	eng := engine.New(config.DefaultLayoutConfig(), zap.NewNop(),
		engine.WithScene(scene),
		engine.WithOptions(engine.Options{Mode: valueobjects.ModeChronological, ViewportWidth: 800, ViewportHeight: 600}))
	// paints outpace ticks, so a paint can land between a command and the
	// tick that recomputes the pins
	runner := NewRunner("s1", eng, RunnerConfig{TickInterval: 40 * time.Millisecond, PaintInterval: 5 * time.Millisecond, CommandBuffer: 8}, zap.NewNop())
	runner.Start()
	defer runner.Close()

	var settledX float64
	nodes, links := testSnapshot()
	require.NoError(t, runner.Do(context.Background(), func(e *engine.Engine) error {
		if _, err := e.ApplySnapshot(nodes, links); err != nil {
			return err
		}
		e.Settle(10000)
		n, _ := e.Node("E1")
		settledX = n.X
		return nil
	}))

	require.Eventually(t, func() bool {
		x, ok := frameX(scene.latest(), "E1")
		return ok && x == settledX
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, runner.Do(context.Background(), func(e *engine.Engine) error {
		e.SetViewport(1600, 600)
		return nil
	}))

	assert.Eventually(t, func() bool {
		x, ok := frameX(scene.latest(), "E1")
		return ok && x != settledX
	}, 2*time.Second, 5*time.Millisecond, "scene kept the layout from before the resize")
}

func TestRunnerReturnsCommandErrors(t *testing.T) {
	eng := engine.New(config.DefaultLayoutConfig(), zap.NewNop())
	runner := NewRunner("s1", eng, fastRunnerConfig(), zap.NewNop())
	runner.Start()
	defer runner.Close()

	sentinel := errors.New("boom")
	err := runner.Do(context.Background(), func(*engine.Engine) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	err = runner.Do(context.Background(), func(*engine.Engine) error { panic("bad command") })
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))

	// still alive after a panic
	err = runner.Do(context.Background(), func(*engine.Engine) error { return nil })
	assert.NoError(t, err)
}

func TestRunnerClose(t *testing.T) {
	eng := engine.New(config.DefaultLayoutConfig(), zap.NewNop())
	runner := NewRunner("s1", eng, fastRunnerConfig(), zap.NewNop())
	runner.Start()

	runner.Close()
	runner.Close()

	select {
	case <-runner.Done():
	default:
		t.Fatal("runner goroutine still running")
	}
	assert.True(t, eng.Closed())

	err := runner.Do(context.Background(), func(*engine.Engine) error { return nil })
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestRunnerCloseWithoutStart(t *testing.T) {
	eng := engine.New(config.DefaultLayoutConfig(), zap.NewNop())
	runner := NewRunner("s1", eng, fastRunnerConfig(), zap.NewNop())

	runner.Close()
	assert.True(t, eng.Closed())
}

func TestRunnerDoHonoursContext(t *testing.T) {
	eng := engine.New(config.DefaultLayoutConfig(), zap.NewNop())
	runner := NewRunner("s1", eng, RunnerConfig{TickInterval: time.Hour, PaintInterval: time.Hour}, zap.NewNop())
	defer runner.Close()

	// never started: the unbuffered command channel cannot be received
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := runner.Do(ctx, func(*engine.Engine) error { return nil })
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeTimeout))
}

func TestManagerLifecycle(t *testing.T) {
	scenes := map[string]*frameRecorder{}
	var mu sync.Mutex
	m := NewManager(config.DefaultLayoutConfig(), fastRunnerConfig(), zap.NewNop(),
		WithSceneFactory(func(id string) ports.Scene {
			mu.Lock()
			defer mu.Unlock()
			scenes[id] = &frameRecorder{}
			return scenes[id]
		}))
	defer m.CloseAll()

	first, err := m.Create("", engine.DefaultOptions())
	require.NoError(t, err)
	second, err := m.Create("", engine.DefaultOptions())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 2, m.Count())

	got, err := m.Get(first.ID())
	require.NoError(t, err)
	assert.Same(t, first, got)

	infos := m.List()
	require.Len(t, infos, 2)

	require.NoError(t, m.Close(first.ID()))
	assert.Equal(t, 1, m.Count())
	_, err = m.Get(first.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(m.Close(first.ID())))

	mu.Lock()
	assert.Len(t, scenes, 2)
	mu.Unlock()
}

func TestManagerSessionLimit(t *testing.T) {
	m := NewManager(nil, fastRunnerConfig(), zap.NewNop(), WithMaxSessions(1))
	defer m.CloseAll()

	_, err := m.Create("", engine.DefaultOptions())
	require.NoError(t, err)
	_, err = m.Create("", engine.DefaultOptions())
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestManagerRejectsDuplicateID(t *testing.T) {
	m := NewManager(nil, fastRunnerConfig(), zap.NewNop())
	defer m.CloseAll()

	r, err := m.Create("fixed", engine.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "fixed", r.ID())

	_, err = m.Create("fixed", engine.DefaultOptions())
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestManagerApplyConfig(t *testing.T) {
	m := NewManager(config.DefaultLayoutConfig(), fastRunnerConfig(), zap.NewNop())
	defer m.CloseAll()

	runner, err := m.Create("", engine.DefaultOptions())
	require.NoError(t, err)

	next := config.DefaultLayoutConfig()
	next.Forces.LinkDistance = 140
	require.NoError(t, m.ApplyConfig(context.Background(), next))
	assert.Equal(t, 140.0, m.LayoutConfig().Forces.LinkDistance)

	var seen float64
	require.NoError(t, runner.Do(context.Background(), func(e *engine.Engine) error {
		seen = e.Config().Forces.LinkDistance
		return nil
	}))
	assert.Equal(t, 140.0, seen)

	invalid := config.DefaultLayoutConfig()
	invalid.Simulation.VelocityDecay = 2
	err = m.ApplyConfig(context.Background(), invalid)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 140.0, m.LayoutConfig().Forces.LinkDistance)
}

func TestManagerCloseAll(t *testing.T) {
	m := NewManager(nil, fastRunnerConfig(), zap.NewNop())
	var runners []*Runner
	for i := 0; i < 3; i++ {
		r, err := m.Create("", engine.DefaultOptions())
		require.NoError(t, err)
		runners = append(runners, r)
	}

	m.CloseAll()

	assert.Zero(t, m.Count())
	for _, r := range runners {
		select {
		case <-r.Done():
		default:
			t.Fatalf("runner %s still running", r.ID())
		}
	}
}
