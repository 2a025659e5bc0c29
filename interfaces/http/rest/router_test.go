package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"constellations/application/commands/bus"
	commandhandlers "constellations/application/commands/handlers"
	querybus "constellations/application/queries/bus"
	queryhandlers "constellations/application/queries/handlers"
	"constellations/application/session"
	"constellations/infrastructure/observability"
	"constellations/infrastructure/render/svg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const snapshotBody = `{
	"nodes": [
		{"id": "P", "type": "person", "title": "Ada"},
		{"id": "E1", "type": "thing", "title": "Engine", "year": 1843}
	],
	"links": [{"source": "P", "target": "E1"}]
}`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *observability.Collector) {
	t.Helper()
	logger := zap.NewNop()
	manager := session.NewManager(nil, session.RunnerConfig{
		TickInterval:  time.Millisecond,
		PaintInterval: 2 * time.Millisecond,
		CommandBuffer: 8,
	}, logger)
	t.Cleanup(manager.CloseAll)

	commandBus := bus.NewCommandBus()
	require.NoError(t, commandhandlers.NewSessionHandlers(manager, logger).Register(commandBus))
	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryhandlers.NewSessionQueryHandlers(manager, svg.NewRenderer(svg.DefaultStyle()), logger).Register(queryBus))

	collector := observability.NewCollector("constellations")
	router := NewRouter(commandBus, queryBus, RouterOptions{
		MetricsHandler: collector.Handler(),
		Recorder:       collector,
	}, logger)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server, collector
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func createSession(t *testing.T, base, body string) string {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/api/v1/sessions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	decode(t, resp, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/v1/sessions/"+created.ID, resp.Header.Get("Location"))
	return created.ID
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	resp := do(t, http.MethodGet, server.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestSessionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	id := createSession(t, base, `{"mode":"chronological","width":1024,"height":768}`)
	sessionURL := base + "/api/v1/sessions/" + id

	resp := do(t, http.MethodPut, sessionURL+"/snapshot", snapshotBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var counts struct {
		Nodes int `json:"nodes"`
		Links int `json:"links"`
	}
	decode(t, resp, &counts)
	assert.Equal(t, 2, counts.Nodes)
	assert.Equal(t, 1, counts.Links)

	resp = do(t, http.MethodGet, sessionURL+"/frame", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Seq"))
	var frame struct {
		Mode   string  `json:"mode"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	decode(t, resp, &frame)
	assert.Equal(t, 1024.0, frame.Width)
	assert.Equal(t, 768.0, frame.Height)

	resp = do(t, http.MethodGet, sessionURL+"/frame.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, svg.ContentType, resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<svg")

	resp = do(t, http.MethodPost, sessionURL+"/interactions", `{"kind":"click_node","node_id":"P"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPut, sessionURL+"/options", `{"compact":true,"search_epoch":2}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPut, sessionURL+"/highlight", `{"keep":["P"],"drop":[]}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, base+"/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, resp, &list)
	assert.Equal(t, 1, list.Count)

	resp = do(t, http.MethodDelete, sessionURL, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, sessionURL+"/frame", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateSessionWithoutBody(t *testing.T) {
	server, _ := newTestServer(t)
	createSession(t, server.URL, "")
}

func TestRequestErrors(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	id := createSession(t, base, "")
	sessionURL := base + "/api/v1/sessions/" + id

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		status int
	}{
		{"unknown session", http.MethodDelete, base + "/api/v1/sessions/missing", "", http.StatusNotFound},
		{"bad mode", http.MethodPost, base + "/api/v1/sessions", `{"mode":"radial"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, base + "/api/v1/sessions", `{"zoom":2}`, http.StatusBadRequest},
		{"malformed snapshot", http.MethodPut, sessionURL + "/snapshot", `{"nodes":`, http.StatusBadRequest},
		{"unknown interaction", http.MethodPost, sessionURL + "/interactions", `{"kind":"spin"}`, http.StatusBadRequest},
		{"center on missing node", http.MethodPost, sessionURL + "/center/ghost", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			env := decode(t, resp, nil)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	do(t, http.MethodGet, server.URL+"/health", "")

	resp := do(t, http.MethodGet, server.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `constellations_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
