// Package observability provides the Prometheus metrics and OpenTelemetry
// tracing of the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. It implements
// ports.Metrics.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	Ticks              prometheus.Counter
	TickDuration       prometheus.Histogram
	Alpha              prometheus.Gauge
	Frames             prometheus.Counter
	FrameDuration      prometheus.Histogram
	FrameNodes         prometheus.Gauge
	FrameSkipped       prometheus.Counter
	Snapshots          *prometheus.CounterVec
	DroppedLinks       prometheus.Counter
	Reheats            *prometheus.CounterVec
	MeasurementFixes   prometheus.Counter
	SolverRecoveries   *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	WebSocketClients   prometheus.Gauge
	WebSocketThrottled prometheus.Counter
}

// NewCollector creates a metrics collector with its own registry, so several
// collectors can coexist in tests.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_ticks_total",
			Help:      "Total number of simulation ticks",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_tick_duration_seconds",
			Help:      "Simulation tick duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		Alpha: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation_alpha",
			Help:      "Energy of the most recently ticked simulation",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_committed_total",
			Help:      "Total number of frames committed to scenes",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Paint pass duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		FrameNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_nodes",
			Help:      "Nodes in the most recently committed frame",
		}),
		FrameSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_skipped_elements_total",
			Help:      "Nodes and links left out of frames for lack of a finite position",
		}),
		Snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_applied_total",
				Help:      "Total number of snapshots applied",
			},
			[]string{"structural"},
		),
		DroppedLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dangling_links_dropped_total",
			Help:      "Links dropped because an endpoint was missing",
		}),
		Reheats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulation_reheats_total",
				Help:      "Energy injections by reason",
			},
			[]string{"reason"},
		),
		MeasurementFixes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurement_corrections_total",
			Help:      "Card heights corrected after measurement",
		}),
		SolverRecoveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solver_recoveries_total",
				Help:      "Solver failures recovered by keeping the previous state",
			},
			[]string{"operation"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live diagram sessions",
		}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		}),
		WebSocketThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_throttled_total",
			Help:      "Inbound websocket messages rejected by the rate limiter",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Ticks,
		c.TickDuration,
		c.Alpha,
		c.Frames,
		c.FrameDuration,
		c.FrameNodes,
		c.FrameSkipped,
		c.Snapshots,
		c.DroppedLinks,
		c.Reheats,
		c.MeasurementFixes,
		c.SolverRecoveries,
		c.ActiveSessions,
		c.WebSocketClients,
		c.WebSocketThrottled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) TickCompleted(d time.Duration, alpha float64) {
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
	c.Alpha.Set(alpha)
}

func (c *Collector) FrameCommitted(d time.Duration, nodes, links, skipped int) {
	c.Frames.Inc()
	c.FrameDuration.Observe(d.Seconds())
	c.FrameNodes.Set(float64(nodes))
	if skipped > 0 {
		c.FrameSkipped.Add(float64(skipped))
	}
}

func (c *Collector) SnapshotApplied(structural bool, droppedLinks int) {
	c.Snapshots.WithLabelValues(strconv.FormatBool(structural)).Inc()
	if droppedLinks > 0 {
		c.DroppedLinks.Add(float64(droppedLinks))
	}
}

func (c *Collector) Reheated(reason string) {
	c.Reheats.WithLabelValues(reason).Inc()
}

func (c *Collector) MeasurementCorrected(count int) {
	c.MeasurementFixes.Add(float64(count))
}

func (c *Collector) SolverRecovered(operation string) {
	c.SolverRecoveries.WithLabelValues(operation).Inc()
}

func (c *Collector) SessionOpened() { c.ActiveSessions.Inc() }
func (c *Collector) SessionClosed() { c.ActiveSessions.Dec() }

// ClientConnected and ClientDisconnected track websocket clients.
func (c *Collector) ClientConnected()    { c.WebSocketClients.Inc() }
func (c *Collector) ClientDisconnected() { c.WebSocketClients.Dec() }

// MessageThrottled counts an inbound message dropped by the rate limiter.
func (c *Collector) MessageThrottled() { c.WebSocketThrottled.Inc() }

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
