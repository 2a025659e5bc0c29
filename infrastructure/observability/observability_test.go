package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"constellations/application/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Metrics = (*Collector)(nil)

func TestCollectorRecordsEngineActivity(t *testing.T) {
	c := NewCollector("test")

	c.TickCompleted(time.Millisecond, 0.42)
	c.TickCompleted(time.Millisecond, 0.40)
	c.FrameCommitted(2*time.Millisecond, 12, 9, 3)
	c.SnapshotApplied(true, 2)
	c.SnapshotApplied(false, 0)
	c.Reheated("snapshot")
	c.Reheated("snapshot")
	c.MeasurementCorrected(4)
	c.SolverRecovered("set_graph")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Ticks))
	assert.Equal(t, 0.40, testutil.ToFloat64(c.Alpha))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.FrameNodes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.FrameSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Snapshots.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Snapshots.WithLabelValues("false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DroppedLinks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Reheats.WithLabelValues("snapshot")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.MeasurementFixes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SolverRecoveries.WithLabelValues("set_graph")))
}

func TestCollectorTracksSessionsAndClients(t *testing.T) {
	c := NewCollector("test")

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	c.ClientConnected()
	c.MessageThrottled()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WebSocketClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WebSocketThrottled))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")
	a.SessionOpened()
	assert.Zero(t, testutil.ToFloat64(b.ActiveSessions))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("constellations")
	c.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `constellations_http_requests_total{method="GET",route="/health",status="200"} 1`))
	assert.Contains(t, body, "go_goroutines")
}

func TestSampleRateByEnvironment(t *testing.T) {
	assert.Equal(t, 0.01, getSampleRate("production"))
	assert.Equal(t, 0.1, getSampleRate("staging"))
	assert.Equal(t, 1.0, getSampleRate("development"))
}

func TestNoopTracer(t *testing.T) {
	tracer := NoopTracer()
	_, span := tracer.Start(context.Background(), "op")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}
