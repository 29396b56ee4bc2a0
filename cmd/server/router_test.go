package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/url"
	"testing"
	"time"

	"postit/cmd/server/testutil"
	"postit/internal/config"
	"postit/internal/gateway"
	"postit/internal/kv"
	"postit/internal/logger"
	"postit/internal/protocol"
	"postit/internal/remote"
	"postit/internal/transport"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-with-32-plus-characters-for-hs256"

type testServer struct {
	app   *fiber.App
	store *kv.MemoryStore
	gw    *gateway.Gateway
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Config{
		LogLevel:            "error",
		LogFormat:           "text",
		StoreBackend:        config.BackendMemory,
		WSOutboxBuffer:      16,
		RouteMetricsEnabled: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	_, err := logger.Init(cfg)
	require.NoError(t, err)

	store := kv.NewMemoryStore()
	gw := gateway.New(store, logger.L(), gateway.WithControlBuffer(cfg.WSOutboxBuffer))
	calls := make(chan gateway.Call)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = gw.Serve(ctx, calls) }()
	t.Cleanup(cancel)

	app := setupRouter(deps{cfg: cfg, store: store, gw: gw, calls: calls})
	return &testServer{app: app, store: store, gw: gw}
}

func pagePath(page string) string {
	return "/api/v1/pages/" + url.PathEscape(page) + "/postits"
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := s.app.Test(testutil.CreateJSONRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestPostitsCRUD(t *testing.T) {
	s := newTestServer(t, nil)
	page := "https://example.com/a?b=c"
	base := pagePath(page)

	resp, err := s.app.Test(testutil.CreateJSONRequest("POST", base, map[string]any{
		"color": "pink", "x": 5, "y": 6, "rotate": 2,
		"content": `<i>hi</i><script>x()</script>`,
	}))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	var created remote.Record
	testutil.DecodeJSON(t, resp, &created)
	assert.NotEmpty(t, created.PostitID)
	assert.Equal(t, "<i>hi</i>", created.Content)

	resp, err = s.app.Test(testutil.CreateJSONRequest("GET", base, nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var list []remote.Record
	testutil.DecodeJSON(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	item := base + "/" + created.PostitID
	resp, err = s.app.Test(testutil.CreateJSONRequest("PUT", item, map[string]any{
		"color": "blue", "x": 50, "y": 60, "minimized": true,
	}))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	// the REST resource shares the collection the gateway serves
	raw, found, err := s.store.Get(context.Background(), gateway.NotesKey)
	require.NoError(t, err)
	require.True(t, found)
	var stored map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored[page], 1)
	assert.Equal(t, "blue", stored[page][0]["color"])

	resp, err = s.app.Test(testutil.CreateJSONRequest("DELETE", item, nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = s.app.Test(testutil.CreateJSONRequest("DELETE", item, nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestPostitsErrors(t *testing.T) {
	s := newTestServer(t, nil)
	base := pagePath("https://example.com/")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"invalid color", "POST", base, map[string]any{"color": "purple"}, 400},
		{"rotation out of range", "POST", base, map[string]any{"color": "yellow", "rotate": 9}, 400},
		{"update unknown", "PUT", base + "/nope", map[string]any{"color": "yellow"}, 404},
		{"duplicate id", "POST", base, map[string]any{"postit_id": "dup", "color": "yellow"}, 201},
		{"duplicate id again", "POST", base, map[string]any{"postit_id": "dup", "color": "yellow"}, 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.app.Test(testutil.CreateJSONRequest(tt.method, tt.path, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestPostitsRequireTokenWhenConfigured(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.JWTSecret = testJWTSecret })
	base := pagePath("https://example.com/")

	resp, err := s.app.Test(testutil.CreateJSONRequest("GET", base, nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	token, err := testutil.CreateTestJWT("cli", []byte(testJWTSecret), time.Minute)
	require.NoError(t, err)
	resp, err = s.app.Test(testutil.CreateAuthenticatedRequest("GET", base, nil, token))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRateLimitedPages(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.RateLimitPerMin = 1 })
	base := pagePath("https://example.com/")

	resp, err := s.app.Test(testutil.CreateJSONRequest("GET", base, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = s.app.Test(testutil.CreateJSONRequest("GET", base, nil))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
}

func TestGatewayUpgradeChecks(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := s.app.Test(testutil.CreateJSONRequest("GET", "/ws/gateway?tab=t1", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)

	resp, err = s.app.Test(testutil.CreateWebSocketRequest("/ws/gateway"))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestMetricsExposeGatewayCounters(t *testing.T) {
	s := newTestServer(t, nil)
	s.gw.Handle(context.Background(), protocol.Request{Action: protocol.ActionGetAll})

	resp, err := s.app.Test(testutil.CreateJSONRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `postit_gateway_requests_total{action="getAll",outcome="ok"} 1`)
}

// listen serves the app on a loopback port and returns its websocket URL.
func listen(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws/gateway"
}

func TestGatewayOverWebsocket(t *testing.T) {
	s := newTestServer(t, nil)
	wsURL := listen(t, s.app)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gw, err := transport.DialWS(ctx, wsURL, transport.WSOptions{Tab: "tab-1"})
	require.NoError(t, err)
	defer func() { _ = gw.Close() }()

	resp, err := gw.Send(ctx, protocol.Request{Action: protocol.ActionSet, Key: "k", Value: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	resp, err = gw.Send(ctx, protocol.Request{Action: protocol.ActionGetAll})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":{"a":1}}`, string(resp.Data))

	resp, err = gw.Send(ctx, protocol.Request{Action: protocol.ActionListURLs})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(resp.Data))

	require.Eventually(t, func() bool { return s.gw.Bridges() == 1 }, 2*time.Second, 10*time.Millisecond)

	httpResp, err := s.app.Test(testutil.CreateJSONRequest("POST", "/api/v1/tabs/tab-1/toggle", nil))
	require.NoError(t, err)
	require.Equal(t, 202, httpResp.StatusCode)
	var toggled map[string]int
	testutil.DecodeJSON(t, httpResp, &toggled)
	assert.Equal(t, 1, toggled["bridges"])

	select {
	case ctl := <-gw.Controls():
		assert.Equal(t, protocol.ControlToggle, ctl.Type)
	case <-ctx.Done():
		t.Fatal("toggle control never arrived")
	}
}
