package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"constellations/application/engine"
	"constellations/application/ports"
	"constellations/application/queries"
	"constellations/application/queries/bus"
	"constellations/application/session"
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type textRenderer struct {
	err error
}

func (r textRenderer) Render(w io.Writer, f *ports.Frame) error {
	if r.err != nil {
		return r.err
	}
	_, err := fmt.Fprintf(w, "seq=%d nodes=%d", f.Seq, len(f.Nodes))
	return err
}

func (textRenderer) ContentType() string { return "text/plain" }

type countingRenderer struct {
	textRenderer
	mu    sync.Mutex
	calls int
}

func (r *countingRenderer) Render(w io.Writer, f *ports.Frame) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.textRenderer.Render(w, f)
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func (c *mapCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func setup(t *testing.T, renderer ports.FrameRenderer) (*bus.QueryBus, *session.Manager) {
	t.Helper()
	// slow tickers so the query paints the first frame itself
	manager := session.NewManager(nil, session.RunnerConfig{
		TickInterval:  time.Hour,
		PaintInterval: time.Hour,
		CommandBuffer: 4,
	}, zap.NewNop())
	t.Cleanup(manager.CloseAll)

	b := bus.NewQueryBus()
	require.NoError(t, NewSessionQueryHandlers(manager, renderer, zap.NewNop()).Register(b))
	return b, manager
}

func seed(t *testing.T, m *session.Manager, id string) {
	t.Helper()
	runner, err := m.Create(id, engine.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, runner.Do(context.Background(), func(e *engine.Engine) error {
		_, err := e.ApplySnapshot([]*entities.Node{
			entities.NewNode("A", valueobjects.CategoryPerson, "A"),
			entities.NewNode("B", valueobjects.CategoryThing, "B"),
		}, []*entities.Link{entities.NewLink("", "A", "B", "")})
		if err != nil {
			return err
		}
		e.Tick()
		return nil
	}))
}

func TestGetFramePaintsOnDemand(t *testing.T) {
	b, manager := setup(t, textRenderer{})
	seed(t, manager, "s1")

	result, err := b.Ask(context.Background(), queries.GetFrameQuery{SessionID: "s1"})
	require.NoError(t, err)
	frame, ok := result.(*ports.Frame)
	require.True(t, ok)
	assert.Len(t, frame.Nodes, 2)
	assert.Len(t, frame.Links, 1)

	again, err := b.Ask(context.Background(), queries.GetFrameQuery{SessionID: "s1"})
	require.NoError(t, err)
	assert.Same(t, frame, again)
}

func TestGetFrameErrors(t *testing.T) {
	b, _ := setup(t, textRenderer{})

	_, err := b.Ask(context.Background(), queries.GetFrameQuery{})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = b.Ask(context.Background(), queries.GetFrameQuery{SessionID: "missing"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestRenderSVG(t *testing.T) {
	b, manager := setup(t, textRenderer{})
	seed(t, manager, "s1")

	result, err := b.Ask(context.Background(), queries.RenderSVGQuery{SessionID: "s1"})
	require.NoError(t, err)
	doc := result.(*queries.RenderedDocument)
	assert.Equal(t, "text/plain", doc.ContentType)
	assert.Equal(t, fmt.Sprintf("seq=%d nodes=2", doc.Seq), string(doc.Body))
}

func TestRenderSVGServesCachedDocument(t *testing.T) {
	manager := session.NewManager(nil, session.RunnerConfig{
		TickInterval:  time.Hour,
		PaintInterval: time.Hour,
		CommandBuffer: 4,
	}, zap.NewNop())
	t.Cleanup(manager.CloseAll)

	renderer := &countingRenderer{}
	documents := &mapCache{items: map[string]interface{}{}}
	b := bus.NewQueryBus()
	require.NoError(t, NewSessionQueryHandlers(manager, renderer, zap.NewNop(), WithDocumentCache(documents, 60)).Register(b))
	seed(t, manager, "s1")

	first, err := b.Ask(context.Background(), queries.RenderSVGQuery{SessionID: "s1"})
	require.NoError(t, err)
	second, err := b.Ask(context.Background(), queries.RenderSVGQuery{SessionID: "s1"})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, renderer.calls)
	assert.Len(t, documents.items, 1)
}

func TestRenderSVGFailures(t *testing.T) {
	b, manager := setup(t, textRenderer{err: errors.New("disk full")})
	seed(t, manager, "s1")

	_, err := b.Ask(context.Background(), queries.RenderSVGQuery{SessionID: "s1"})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))

	noRenderer, manager2 := setup(t, nil)
	seed(t, manager2, "s2")
	_, err = noRenderer.Ask(context.Background(), queries.RenderSVGQuery{SessionID: "s2"})
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestListSessions(t *testing.T) {
	b, manager := setup(t, nil)
	seed(t, manager, "s1")
	seed(t, manager, "s2")

	result, err := b.Ask(context.Background(), queries.ListSessionsQuery{})
	require.NoError(t, err)
	infos := result.([]session.Info)
	require.Len(t, infos, 2)
	assert.ElementsMatch(t, []string{"s1", "s2"}, []string{infos[0].ID, infos[1].ID})
}
