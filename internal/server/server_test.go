package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tasklive/internal/api/ws"
	"github.com/gosuda/tasklive/internal/config"
	"github.com/gosuda/tasklive/internal/domain"
	"github.com/gosuda/tasklive/internal/event"
	"github.com/gosuda/tasklive/internal/realtime"
	"github.com/gosuda/tasklive/internal/server"
	"github.com/gosuda/tasklive/internal/tracker"
	"github.com/gosuda/tasklive/internal/tracker/trackertest"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:         "127.0.0.1:0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			CORSOrigins:  []string{"http://app.test"},
		},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *realtime.Registry) {
	t.Helper()

	reg := realtime.NewRegistry(time.Second)
	svc := tracker.NewService(trackertest.NewStore(), reg)
	srv := httptest.NewServer(server.New(t.Context(), cfg, svc, reg).Handler())
	t.Cleanup(srv.Close)
	return srv, reg
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body)) //nolint:noctx // test helper
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/healthz") //nolint:noctx // test
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_RESTMutationReachesPushChannel(t *testing.T) {
	t.Parallel()

	srv, reg := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() { _ = c.CloseNow() }()

	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	greet, err := event.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, event.TypeConnected, greet.Type)
	assert.Equal(t, ws.Greeting, greet.Message)

	require.Eventually(t, func() bool { return reg.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := post(t, srv.URL+"/api/v1/projects", `{"name":"Launch"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, data, err = c.Read(ctx)
	require.NoError(t, err)
	env, err := event.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "project:created", env.Type)

	var p domain.Project
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "Launch", p.Name)
}

func TestServer_RPCProcedures(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testConfig())

	resp := post(t, srv.URL+"/rpc/projects/create", `{"name":"Alpha"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv.URL+"/rpc/projects/getAll", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var projects []domain.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "Alpha", projects[0].Name)
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "configured origin is allowed", origin: "http://app.test", want: "http://app.test"},
		{name: "unknown origin is refused", origin: "http://evil.test", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequestWithContext(t.Context(), http.MethodOptions, srv.URL+"/api/v1/projects", http.NoBody)
			require.NoError(t, err)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.want, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestServer_RateLimitsMutations(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	srv, _ := newTestServer(t, cfg)

	resp := post(t, srv.URL+"/api/v1/projects", `{"name":"one"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, srv.URL+"/api/v1/projects", `{"name":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Reads are never limited.
	get, err := http.Get(srv.URL + "/api/v1/projects") //nolint:noctx // test
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
}

func TestServer_WebSocketRejectsForeignOrigin(t *testing.T) {
	t.Parallel()

	srv, reg := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.test"}},
	})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
	assert.Equal(t, 0, reg.Len())
}
