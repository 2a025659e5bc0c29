package engine

import (
	"math"

	"constellations/application/ports"
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	"constellations/domain/layout"

	"go.uber.org/zap"
)

// measurementState sequences the card measurement. arm marks content as
// changed; the paint that follows commits provisional sizes; the paint after
// that measures once. A correction never re-arms.
type measurementState struct {
	requested bool
	due       bool
}

func (m *measurementState) arm() {
	m.requested = true
}

func (m *measurementState) afterPaint() {
	if m.requested {
		m.requested = false
		m.due = true
	}
}

func (m *measurementState) take() bool {
	if !m.due {
		return false
	}
	m.due = false
	return true
}

// MeasurementPending reports whether a measurement pass is waiting for a paint.
func (e *Engine) MeasurementPending() bool {
	return e.measure.requested || e.measure.due
}

func (e *Engine) measureIfDue() {
	if !e.measure.take() || !e.opts.Mode.IsChronological() {
		return
	}
	measurer, ok := e.scene.(ports.Measurer)
	if !ok {
		return
	}

	var ids []valueobjects.NodeID
	for _, n := range e.nodes {
		if e.profile(n).Shape == layout.ShapeCard {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	// ids the scene could not measure keep their nominal height
	e.ApplyMeasurements(measurer.MeasureContent(ids))
}

// ApplyMeasurements stores reported card heights. Heights within tolerance of
// the current value are ignored, so repeating a measurement is a no-op. Any
// correction updates collision radii and runs one bounded relaxation pass.
// It returns the number of nodes corrected.
func (e *Engine) ApplyMeasurements(heights map[valueobjects.NodeID]float64) int {
	corrected := 0
	for id, h := range heights {
		n, ok := e.byID[id]
		if !ok || !validHeight(h) {
			continue
		}
		if !e.needsCorrection(n, h) {
			continue
		}
		n.MeasuredHeight = h
		corrected++
	}
	if corrected == 0 {
		return 0
	}

	e.logger.Debug("Card heights corrected", zap.Int("count", corrected))
	e.metrics.MeasurementCorrected(corrected)

	// radii changed; chronological targets depend on the tallest card
	if err := e.sim.Reinitialize(); err != nil {
		e.solverFailed("measurement", err)
	}
	e.pinsDirty = true
	e.sim.Reheat(e.cfg.Simulation.MeasureAlpha)
	e.metrics.Reheated("measurement")
	return corrected
}

// needsCorrection ignores anything that is not a card; only cards have
// content-dependent height.
func (e *Engine) needsCorrection(n *entities.Node, h float64) bool {
	p := e.profile(n)
	if p.Shape != layout.ShapeCard {
		return false
	}
	return math.Abs(p.Height-h) > e.cfg.Measurement.Tolerance
}

func validHeight(h float64) bool {
	return h > 0 && !math.IsNaN(h) && !math.IsInf(h, 0)
}
