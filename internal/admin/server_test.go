package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidelight-panel/internal/config"
	"guidelight-panel/internal/engine"
	"guidelight-panel/internal/errcode"
	"guidelight-panel/internal/logging"
	"guidelight-panel/internal/scheduler"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T) (*engine.Engine, *scheduler.Manual, *gin.Engine) {
	t.Helper()
	clk := scheduler.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	eng, err := engine.New(config.Default(), engine.WithClock(clk), engine.WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng, clk, NewServer(eng, logging.Discard()).Router()
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) engine.Snapshot {
	t.Helper()
	var s engine.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestIndexRendersState(t *testing.T) {
	_, _, r := newTestServer(t)
	w := do(r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Guidelight AI Control Panel")
	assert.Contains(t, body, "System initialized")
	assert.Contains(t, body, "no active alerts")
	assert.Contains(t, body, "https://drive.google.com/file/d/1A2B3C4D5E6F-example-file-id/preview")
}

func TestHealth(t *testing.T) {
	_, _, r := newTestServer(t)
	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDispatchCommand(t *testing.T) {
	eng, clk, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/commands", gin.H{"command": "Capture Frame"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var p engine.PendingCommand
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Capture Frame", p.Command)

	w = do(r, http.MethodGet, "/api/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []engine.PendingCommand
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, p.ID, pending[0].ID)

	clk.Add(800 * time.Millisecond)
	eng.Scheduler().Fire()

	s := decodeState(t, do(r, http.MethodGet, "/api/state", nil))
	assert.Equal(t, "Capture Frame — completed", s.Alert)
	assert.Equal(t, "System: Executed 'Capture Frame' successfully.", s.Log[0].Message)
	assert.Empty(t, s.Pending)
}

func TestDispatchRejectsBadInput(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/commands", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/commands", gin.H{"command": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"invalid_params"`)
}

func TestDispatchAfterCloseIsUnavailable(t *testing.T) {
	eng, _, r := newTestServer(t)
	eng.Close()
	w := do(r, http.MethodPost, "/api/commands", gin.H{"command": "Read text"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"engine_closed"`)
}

func TestToggleAlertAndMood(t *testing.T) {
	eng, _, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/stream/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"streaming":false,"state":"Paused"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/alerts/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alert":"Obstacle: chair 1.2m ahead"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/mood/reshuffle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Mood string `json:"mood"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, config.Default().Moods, resp.Mood)
	assert.Equal(t, resp.Mood, eng.Snapshot().Mood)
}

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, r http.Handler) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, srv
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func readState(t *testing.T, conn *websocket.Conn) engine.Snapshot {
	t.Helper()
	for {
		env := readEnvelope(t, conn)
		if env.Type != "state" {
			continue
		}
		var s engine.Snapshot
		require.NoError(t, json.Unmarshal(env.Data, &s))
		return s
	}
}

func TestWebSocketStreamsChanges(t *testing.T) {
	_, _, r := newTestServer(t)
	conn, srv := dialWS(t, r)

	initial := readState(t, conn)
	assert.True(t, initial.Streaming)

	resp, err := http.Post(srv.URL+"/api/stream/toggle", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	s := readState(t, conn)
	assert.False(t, s.Streaming)
	assert.Equal(t, "Stopped video stream", s.Log[0].Message)
}

func TestWebSocketActions(t *testing.T) {
	eng, _, r := newTestServer(t)
	conn, _ := dialWS(t, r)
	readState(t, conn)

	require.NoError(t, conn.WriteJSON(wsAction{Action: "dispatch", Command: "Read text"}))
	var got envelope
	for got.Type != "dispatched" {
		got = readEnvelope(t, conn)
	}
	var p engine.PendingCommand
	require.NoError(t, json.Unmarshal(got.Data, &p))
	assert.Equal(t, "Read text", p.Command)
	assert.Len(t, eng.Snapshot().Pending, 1)

	require.NoError(t, conn.WriteJSON(wsAction{Action: "launch"}))
	got = envelope{}
	for got.Type != "error" {
		got = readEnvelope(t, conn)
	}
	assert.True(t, strings.Contains(got.Error, "unknown action"))

	require.NoError(t, conn.WriteJSON(wsAction{Action: "test_alert"}))
	for {
		s := readState(t, conn)
		if s.Alert == "Obstacle: chair 1.2m ahead" {
			break
		}
	}
}

func TestWebSocketClosesWithEngine(t *testing.T) {
	eng, _, r := newTestServer(t)
	conn, _ := dialWS(t, r)
	readState(t, conn)

	eng.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
	}
}

// staleEngine reports a different alert from Snapshot than the one the test
// alert call returns, as when another action lands in between.
type staleEngine struct{ snap engine.Snapshot }

func (s *staleEngine) Snapshot() engine.Snapshot { return s.snap }
func (s *staleEngine) Subscribe(int) (<-chan engine.Snapshot, func()) {
	ch := make(chan engine.Snapshot)
	close(ch)
	return ch, func() {}
}
func (s *staleEngine) Dispatch(string) (engine.PendingCommand, error) {
	return engine.PendingCommand{}, errcode.EngineClosed
}
func (s *staleEngine) ToggleStream() engine.StreamState { return engine.Streaming }
func (s *staleEngine) TriggerTestAlert() string         { return "Obstacle: chair 1.2m ahead" }
func (s *staleEngine) Reshuffle() string                { return "calm" }

func TestTestAlertReportsAlertItSet(t *testing.T) {
	eng := &staleEngine{}
	eng.snap.Alert = "Read text — completed"
	r := NewServer(eng, logging.Discard()).Router()

	w := do(r, http.MethodPost, "/api/alerts/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alert":"Obstacle: chair 1.2m ahead"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errcodeErr("invalid_params"), http.StatusBadRequest},
		{errcodeErr("engine_closed"), http.StatusServiceUnavailable},
		{errcodeErr("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func errcodeErr(code string) error { return errcode.Code(code) }
