package ports

import "time"

// Metrics records engine activity. The observability package provides the
// Prometheus implementation.
type Metrics interface {
	TickCompleted(d time.Duration, alpha float64)
	FrameCommitted(d time.Duration, nodes, links, skipped int)
	SnapshotApplied(structural bool, droppedLinks int)
	Reheated(reason string)
	MeasurementCorrected(count int)
	SolverRecovered(operation string)
	SessionOpened()
	SessionClosed()
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) TickCompleted(time.Duration, float64) {}
func (NoopMetrics) FrameCommitted(time.Duration, int, int, int) {}
func (NoopMetrics) SnapshotApplied(bool, int) {}
func (NoopMetrics) Reheated(string) {}
func (NoopMetrics) MeasurementCorrected(int) {}
func (NoopMetrics) SolverRecovered(string) {}
func (NoopMetrics) SessionOpened() {}
func (NoopMetrics) SessionClosed() {}
