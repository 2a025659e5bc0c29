// Package engine owns the node and link state of one diagram and drives the
// layout, measurement, interaction and render passes over it.
package engine

import (
	"context"
	"math"
	"math/rand"
	"time"

	"constellations/application/ports"
	"constellations/domain/config"
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	"constellations/domain/highlight"
	"constellations/domain/layout"
	pkgerrors "constellations/pkg/errors"

	"go.uber.org/zap"
)

// Options are the presentation flags the shell controls.
type Options struct {
	Mode           valueobjects.LayoutMode `json:"mode"`
	Compact        bool                    `json:"compact"`
	TextOnly       bool                    `json:"text_only"`
	ViewportWidth  float64                 `json:"viewport_width"`
	ViewportHeight float64                 `json:"viewport_height"`
}

// DefaultOptions is a free-form 800x600 diagram.
func DefaultOptions() Options {
	return Options{Mode: valueobjects.ModeFreeForm, ViewportWidth: 800, ViewportHeight: 600}
}

// Engine is one long-lived diagram instance. It is created on mount, updated
// by snapshot replacement and closed on unmount. It is not safe for
// concurrent use; session.Runner serializes access.
type Engine struct {
	cfg      *config.LayoutConfig
	logger   *zap.Logger
	metrics  ports.Metrics
	scene    ports.Scene
	listener ports.Listener
	resolver *highlight.Resolver
	rnd      *rand.Rand

	nodes []*entities.Node
	byID  map[valueobjects.NodeID]*entities.Node
	links []*entities.Link
	edges []layout.Edge
	sim   *layout.Simulation

	opts        Options
	keep        []valueobjects.NodeID
	drop        []valueobjects.NodeID
	selected    valueobjects.NodeID
	clickFocus  valueobjects.NodeID
	hover       valueobjects.NodeID
	searchEpoch int64

	// pinsDirty means the chronological targets must be recomputed before
	// the next tick.
	pinsDirty bool
	// dropped holds where untimed things were released in chronological
	// mode. Pin recomputes leave these nodes where they are.
	dropped   map[valueobjects.NodeID]valueobjects.Position
	drag      *dragGesture
	view      viewState
	measure   measurementState
	frameSeq  uint64
	lastFrame *ports.Frame
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithScene attaches the retained renderer.
func WithScene(s ports.Scene) Option {
	return func(e *Engine) { e.scene = s }
}

// WithListener attaches the outward event sink.
func WithListener(l ports.Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m ports.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithOptions sets the initial presentation flags.
func WithOptions(o Options) Option {
	return func(e *Engine) { e.opts = o }
}

// New creates an empty engine.
func New(cfg *config.LayoutConfig, logger *zap.Logger, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultLayoutConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		metrics:  ports.NoopMetrics{},
		listener: ports.NoopListener{},
		resolver: highlight.NewResolver(highlight.DefaultPalette()),
		rnd:      rand.New(rand.NewSource(cfg.Simulation.Seed)),
		byID:     make(map[valueobjects.NodeID]*entities.Node),
		opts:     DefaultOptions(),
		view:     newViewState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sim = layout.NewSimulation(e.simulationParams(), e.rnd)
	e.sim.SetCenter(e.center())
	e.installStrategy()
	return e
}

func (e *Engine) simulationParams() layout.SimulationParams {
	return layout.SimulationParams{
		AlphaMin:        e.cfg.Simulation.AlphaMin,
		AlphaDecayTicks: e.cfg.Simulation.AlphaDecayTicks,
		VelocityDecay:   e.cfg.Simulation.VelocityDecay,
	}
}

func (e *Engine) center() valueobjects.Position {
	return valueobjects.Position{X: e.opts.ViewportWidth / 2, Y: e.opts.ViewportHeight / 2}
}

func (e *Engine) variant() layout.Variant {
	return layout.Variant{Mode: e.opts.Mode, TextOnly: e.opts.TextOnly, Compact: e.opts.Compact}
}

func (e *Engine) profile(n *entities.Node) layout.Profile {
	return layout.ProfileOf(n, e.variant(), e.cfg.Geometry)
}

// strategy builds the tagged layout variant for the current mode.
func (e *Engine) strategy() layout.Strategy {
	if e.opts.Mode.IsChronological() {
		return e.chronological()
	}
	f := e.cfg.Forces
	distance, charge := f.LinkDistance, f.ChargeStrength
	if e.opts.Compact {
		distance, charge = f.LinkDistanceCompact, f.ChargeStrengthCompact
	}
	return layout.FreeForm{Params: layout.FreeFormParams{
		Center:              e.center(),
		LinkDistance:        distance,
		ChargeStrength:      charge,
		ChargeDistanceMax:   f.ChargeDistanceMax,
		CenterStrength:      f.CenterStrength,
		CollisionStrength:   f.CollisionStrength,
		CollisionIterations: f.CollisionIterations,
		Radius: func(n *entities.Node) float64 {
			return e.profile(n).CollisionRadius
		},
	}}
}

func (e *Engine) chronological() layout.Chronological {
	g, c := e.cfg.Geometry, e.cfg.Chronology
	cardHeight := g.CardHeight
	if e.opts.TextOnly {
		cardHeight = g.CardHeightTextOnly
	}
	for _, n := range e.nodes {
		if n.HasYear() && !n.IsPerson() {
			cardHeight = math.Max(cardHeight, e.profile(n).Height)
		}
	}
	personRadius := layout.ProfileOf(
		entities.NewNode("", valueobjects.CategoryPerson, ""),
		layout.Variant{Mode: valueobjects.ModeChronological},
		g,
	).CollisionRadius

	return layout.Chronological{
		Axis: layout.ChronoAxis{
			CenterX:     e.opts.ViewportWidth / 2,
			Y:           e.opts.ViewportHeight * 0.6,
			ItemSpacing: c.ItemSpacing,
			CardHeight:  cardHeight,
			CardWidth:   g.CardWidth,
			Gap:         c.AxisGap,
		},
		Rows: layout.ChronoRows{
			PersonRadius:  personRadius,
			Margin:        c.PersonMargin,
			RowGap:        c.PersonRowGap,
			Capacity:      c.RowCapacity,
			ViewportWidth: e.opts.ViewportWidth,
			Padding:       c.Padding,
		},
		ResidualCharge: e.cfg.Forces.ResidualCharge,
	}
}

// installStrategy feeds the current variant into the simulation. Free-form
// gets its forces; chronological gets only the residual charge and marks the
// pins for assignment on the next tick.
func (e *Engine) installStrategy() {
	var err error
	switch s := e.strategy().(type) {
	case layout.Chronological:
		err = e.sim.Apply(s.ResidualPlan())
		e.pinsDirty = true
	case layout.FreeForm:
		err = e.sim.Apply(s.ComputeTargets(e.nodes, e.edges))
	}
	if err != nil {
		e.solverFailed("install strategy", err)
	}
}

func (e *Engine) assignChronologicalPins() {
	e.pinsDirty = false
	packed := e.nodes
	if len(e.dropped) > 0 {
		packed = make([]*entities.Node, 0, len(e.nodes))
		for _, n := range e.nodes {
			if _, ok := e.dropped[n.ID]; !ok {
				packed = append(packed, n)
			}
		}
	}

	plan := e.chronological().ComputeTargets(packed, e.edges)
	for id, pos := range e.dropped {
		plan.Pins[id] = pos
	}
	if err := e.sim.Apply(plan); err != nil {
		e.solverFailed("assign pins", err)
	}
}

func (e *Engine) solverFailed(op string, err error) {
	e.logger.Error("Layout solver failed, keeping previous state",
		zap.String("operation", op),
		zap.Error(err))
	e.metrics.SolverRecovered(op)
}

// Tick advances the simulation clock by one fixed step. It reports whether
// any position may have changed, which includes a chronological pin
// recompute on a clock that has already cooled.
func (e *Engine) Tick() bool {
	if e.closed {
		return false
	}
	repinned := false
	if e.opts.Mode.IsChronological() && e.pinsDirty {
		e.assignChronologicalPins()
		repinned = true
	}
	start := time.Now()
	moved := e.sim.Tick()
	if moved {
		e.metrics.TickCompleted(time.Since(start), e.sim.Alpha())
	}
	return moved || repinned
}

// Settle ticks until the simulation cools down or maxTicks is reached and
// returns the number of ticks run.
func (e *Engine) Settle(maxTicks int) int {
	ticks := 0
	for ticks < maxTicks && e.Tick() {
		ticks++
	}
	return ticks
}

// Paint runs one render pass: pending measurement, viewport animation,
// chronological pin overwrite, frame build and scene commit.
func (e *Engine) Paint(ctx context.Context, now time.Time) (*ports.Frame, error) {
	if e.closed {
		return nil, pkgerrors.NewUnavailableError("engine")
	}
	start := time.Now()

	e.measureIfDue()
	e.advanceViewport(now)
	if e.opts.Mode.IsChronological() {
		for _, n := range e.nodes {
			n.ApplyPin()
		}
	}

	frame := e.buildFrame()
	if e.scene != nil {
		if err := e.scene.Commit(ctx, frame); err != nil {
			e.logger.Warn("Scene commit failed", zap.Uint64("seq", frame.Seq), zap.Error(err))
		}
	}
	e.lastFrame = frame
	e.metrics.FrameCommitted(time.Since(start), len(frame.Nodes), len(frame.Links), frame.Skipped)

	e.measure.afterPaint()
	return frame, nil
}

// LastFrame returns the most recently painted frame.
func (e *Engine) LastFrame() *ports.Frame {
	return e.lastFrame
}

// Close stops the clock and detaches the scene and listener.
func (e *Engine) Close() {
	e.closed = true
	e.sim.Stop()
	e.drag = nil
	e.scene = nil
	e.listener = ports.NoopListener{}
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	return e.closed
}

// Options returns the current presentation flags.
func (e *Engine) Options() Options {
	return e.opts
}

// Config returns the active layout configuration.
func (e *Engine) Config() *config.LayoutConfig {
	return e.cfg
}

// Alpha returns the simulation energy.
func (e *Engine) Alpha() float64 {
	return e.sim.Alpha()
}

// Running reports whether the simulation clock is active.
func (e *Engine) Running() bool {
	return e.sim.Running()
}

// Node returns the live node with id.
func (e *Engine) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	n, ok := e.byID[id]
	return n, ok
}

// Nodes returns the live node set in snapshot order.
func (e *Engine) Nodes() []*entities.Node {
	return e.nodes
}

// Links returns the render-eligible links.
func (e *Engine) Links() []*entities.Link {
	return e.links
}

// Focus returns the focused node id: the last clicked node, else the
// shell's selection.
func (e *Engine) Focus() valueobjects.NodeID {
	if !e.clickFocus.IsZero() {
		return e.clickFocus
	}
	if _, ok := e.byID[e.selected]; ok {
		return e.selected
	}
	return ""
}

// SetMode switches layout philosophy. Every pin is released and every
// velocity zeroed before the next tick.
func (e *Engine) SetMode(mode valueobjects.LayoutMode) {
	if mode == e.opts.Mode {
		return
	}
	leavingChronological := e.opts.Mode.IsChronological()
	e.cancelDrag()
	e.dropped = nil
	for _, n := range e.nodes {
		n.ForceClearPin()
		n.VX, n.VY = 0, 0
	}
	e.opts.Mode = mode

	if leavingChronological {
		c := e.center()
		j := e.cfg.Simulation.JitterRadius
		for _, n := range e.nodes {
			n.X = c.X + (e.rnd.Float64()*2-1)*j
			n.Y = c.Y + (e.rnd.Float64()*2-1)*j
		}
	}

	e.installStrategy()
	if mode.IsChronological() {
		e.measure.arm()
	}
	e.sim.SetAlphaTarget(0)
	e.sim.SetAlpha(e.cfg.Simulation.ModeSwitchAlpha)
	e.sim.Restart()
	e.metrics.Reheated("mode_switch")
	e.logger.Debug("Layout mode switched", zap.String("mode", mode.String()))
}

// SetCompact toggles the compact variant.
func (e *Engine) SetCompact(compact bool) {
	if compact == e.opts.Compact {
		return
	}
	e.opts.Compact = compact
	e.geometryChanged("compact")
}

// SetTextOnly toggles image-free rendering.
func (e *Engine) SetTextOnly(textOnly bool) {
	if textOnly == e.opts.TextOnly {
		return
	}
	e.opts.TextOnly = textOnly
	for _, n := range e.nodes {
		n.MeasuredHeight = 0
	}
	if e.opts.Mode.IsChronological() {
		e.measure.arm()
	}
	e.geometryChanged("text_only")
}

// SetViewport resizes the diagram.
func (e *Engine) SetViewport(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	if width == e.opts.ViewportWidth && height == e.opts.ViewportHeight {
		return
	}
	e.opts.ViewportWidth, e.opts.ViewportHeight = width, height
	e.sim.SetCenter(e.center())
	e.geometryChanged("viewport")
}

// SetConfig swaps the tuning, for example after a hot reload.
func (e *Engine) SetConfig(cfg *config.LayoutConfig) {
	e.cfg = cfg
	e.sim.Configure(e.simulationParams())
	e.geometryChanged("config")
}

func (e *Engine) geometryChanged(reason string) {
	if e.opts.Mode.IsChronological() {
		e.pinsDirty = true
		return
	}
	e.installStrategy()
	e.sim.Reheat(e.cfg.Simulation.ReheatAlpha)
	e.metrics.Reheated(reason)
}

// SetHighlight replaces the keep and drop sets. Keep order is significant.
func (e *Engine) SetHighlight(keep, drop []valueobjects.NodeID) {
	e.keep = append([]valueobjects.NodeID(nil), keep...)
	e.drop = append([]valueobjects.NodeID(nil), drop...)
}

// SetSelected records the shell's selected node. An explicit selection
// replaces any click focus.
func (e *Engine) SetSelected(id valueobjects.NodeID) {
	e.selected = id
	e.clickFocus = ""
}

// SetSearchEpoch resets the viewport whenever the epoch changes.
func (e *Engine) SetSearchEpoch(epoch int64) {
	if epoch == e.searchEpoch {
		return
	}
	e.searchEpoch = epoch
	e.view.reset()
	e.clickFocus = ""
	e.hover = ""
	e.reportVisible()
}

// SearchEpoch returns the last epoch seen.
func (e *Engine) SearchEpoch() int64 {
	return e.searchEpoch
}

func (e *Engine) highlightState() highlight.State {
	return highlight.State{
		Keep:  e.keep,
		Drop:  e.drop,
		Focus: e.Focus(),
		Hover: e.hover,
	}
}
