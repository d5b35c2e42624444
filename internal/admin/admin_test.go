package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/voice-tool-router/internal/flags"
	"github.com/wagiedev/voice-tool-router/internal/message"
	"github.com/wagiedev/voice-tool-router/internal/protocol"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

type staticTools struct {
	descs []message.ToolDescriptor
	err   error
}

func (s staticTools) ListTools(context.Context) ([]message.ToolDescriptor, error) {
	return s.descs, s.err
}

type fixture struct {
	engine *flags.Engine
	srv    *httptest.Server
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	engine := flags.New(nil, store.NewMemory())
	srv := httptest.NewServer(NewRouter(nil, engine, opts...))
	t.Cleanup(srv.Close)

	return &fixture{engine: engine, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(data, &v))

	return v
}

func TestHealth(t *testing.T) {
	t.Run("without client", func(t *testing.T) {
		f := newFixture(t)
		resp, body := f.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get(RequestIDHeader))
		require.Equal(t, HealthResponse{Status: "ok"}, decode[HealthResponse](t, body))
	})

	t.Run("ready client", func(t *testing.T) {
		f := newFixture(t, WithConnectionState(func() protocol.ConnectionState { return protocol.Ready }))
		resp, body := f.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ready", decode[HealthResponse](t, body).Connection)
	})

	t.Run("failed client", func(t *testing.T) {
		f := newFixture(t, WithConnectionState(func() protocol.ConnectionState {
			return protocol.ErrorState("refused")
		}))
		resp, body := f.do(t, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Equal(t, HealthResponse{Status: "degraded", Connection: "error(refused)"}, decode[HealthResponse](t, body))
	})
}

func TestStatus(t *testing.T) {
	f := newFixture(t, WithConnectionState(func() protocol.ConnectionState { return protocol.Ready }))

	resp, body := f.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[StatusResponse](t, body)
	require.Equal(t, flags.StateHybrid, got.State)
	require.Equal(t, []flags.Category{flags.CategoryLocation, flags.CategoryTransport}, got.EnabledCategories)
	require.Equal(t, "ready", got.Connection)
}

func TestListTools(t *testing.T) {
	tools := staticTools{descs: []message.ToolDescriptor{
		message.NewToolDescriptor("get_weather", "Current weather", nil),
		message.NewToolDescriptor("search_location", "Find a place", nil),
	}}
	f := newFixture(t, WithTools(tools))

	resp, body := f.do(t, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []ToolStatus{
		{Name: "get_weather", Description: "Current weather", Category: flags.CategoryTravel, NewPath: false},
		{Name: "search_location", Description: "Find a place", Category: flags.CategoryLocation, NewPath: true},
	}, decode[[]ToolStatus](t, body))

	t.Run("lister failure", func(t *testing.T) {
		f := newFixture(t, WithTools(staticTools{err: errors.New("not connected")}))
		resp, body := f.do(t, http.MethodGet, "/tools", "")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Contains(t, string(body), "not connected")
	})

	t.Run("no lister", func(t *testing.T) {
		f := newFixture(t)
		_, body := f.do(t, http.MethodGet, "/tools", "")
		require.JSONEq(t, "[]", string(body))
	})
}

func TestExecutions(t *testing.T) {
	f := newFixture(t)
	f.engine.RecordExecution("get_weather", true, time.Second, true, nil)
	f.engine.RecordExecution("get_weather", true, 2*time.Second, false, errors.New("boom"))
	f.engine.RecordExecution("web_search", false, time.Second, true, nil)

	resp, body := f.do(t, http.MethodGet, "/executions/new", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[ExecutionsResponse](t, body)
	require.Equal(t, flags.PathNew, got.Path)
	require.Len(t, got.Executions, 2)
	require.Equal(t, int64(2), got.Next)
	require.Equal(t, "boom", got.Executions[1].ErrorMessage)

	f.engine.RecordExecution("get_weather", true, time.Second, true, nil)

	_, body = f.do(t, http.MethodGet, "/executions/new?since=2", "")
	got = decode[ExecutionsResponse](t, body)
	require.Len(t, got.Executions, 1)
	require.Equal(t, int64(3), got.Next)

	_, body = f.do(t, http.MethodGet, "/executions/legacy?since=5", "")
	got = decode[ExecutionsResponse](t, body)
	require.NotNil(t, got.Executions)
	require.Empty(t, got.Executions)

	resp, _ = f.do(t, http.MethodGet, "/executions/sideways", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/executions/new?since=-1", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetState(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPut, "/state", `{"state":"newOnly"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, flags.StateNewOnly, decode[flags.Status](t, body).State)
	require.Equal(t, flags.StateNewOnly, f.engine.State())

	resp, _ = f.do(t, http.MethodPut, "/state", `{"state":"sideways"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPut, "/state", `{"mode":"legacy"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, flags.StateNewOnly, f.engine.State())
}

func TestCategories(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/categories/travel/enable", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, f.engine.IsCategoryEnabled(flags.CategoryTravel))

	resp, _ = f.do(t, http.MethodPost, "/categories/location/disable", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, f.engine.IsCategoryEnabled(flags.CategoryLocation))

	resp, _ = f.do(t, http.MethodPost, "/categories/music/enable", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/categories/enable-all", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, flags.AllCategories(), decode[flags.Status](t, body).EnabledCategories)

	resp, body = f.do(t, http.MethodPost, "/categories/disable-all", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[flags.Status](t, body).EnabledCategories)
}

func TestRollback(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetMigrationState(flags.StateNewOnly))

	resp, _ := f.do(t, http.MethodPost, "/rollback", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, flags.StateNewOnly, f.engine.State())

	resp, body := f.do(t, http.MethodPost, "/rollback", `{"reason":"error spike"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[flags.Status](t, body)
	require.Equal(t, flags.StateLegacy, got.State)
	require.Empty(t, got.EnabledCategories)
	require.NotNil(t, got.LastRollback)
	require.Equal(t, "error spike", got.LastRollback.Reason)
	require.Equal(t, flags.StateNewOnly, got.LastRollback.PreviousState)
}

func TestResetCounters(t *testing.T) {
	f := newFixture(t)
	f.engine.RecordExecution("get_weather", true, time.Second, false, errors.New("boom"))
	require.Equal(t, int64(1), f.engine.ErrorCount("get_weather"))

	resp, _ := f.do(t, http.MethodPost, "/counters/get_weather/reset", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Zero(t, f.engine.ErrorCount("get_weather"))
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	f := newFixture(t, WithRateLimit(0.001, 1))

	resp, _ := f.do(t, http.MethodPost, "/categories/travel/enable", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/categories/search/enable", "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Retry-After"))
	require.False(t, f.engine.IsCategoryEnabled(flags.CategorySearch))

	for range 5 {
		resp, _ = f.do(t, http.MethodGet, "/status", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/status", "")

	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `toolrouter_admin_requests_total{code="200",route="/status"}`)
}

func TestRecovery(t *testing.T) {
	h := Recovery(slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	defer conn.Close()

	require.NoError(t, f.engine.SetMigrationState(flags.StateNewWithFallback))
	require.NoError(t, f.engine.EnableCategory(flags.CategorySearch))
	f.engine.EmergencyRollback("latency")

	want := []flags.EventType{
		flags.EventStateChanged,
		flags.EventCategoryEnabled,
		flags.EventEmergencyRollback,
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	for _, typ := range want {
		var ev flags.Event
		require.NoError(t, conn.ReadJSON(&ev))
		require.Equal(t, typ, ev.Type)
		require.NotEmpty(t, ev.ID)
	}
}
