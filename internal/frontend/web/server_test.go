package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/chatrooms/internal/chat/room"
	"github.com/cory-johannsen/chatrooms/internal/chat/session"
	"github.com/cory-johannsen/chatrooms/internal/chatserver"
	"github.com/cory-johannsen/chatrooms/internal/config"
	"github.com/cory-johannsen/chatrooms/internal/observability"
)

const testOrigin = "http://chat.test"

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Host:           "127.0.0.1",
		Port:           0,
		HubPath:        "/chatHub",
		AllowedOrigins: []string{testOrigin},
		MaxMessageSize: 1024,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   2 * time.Second,
		PingInterval:   time.Second,
	}
}

type harness struct {
	server *Server
	http   *httptest.Server
	coord  *chatserver.Coordinator
}

func newHarness(t *testing.T, cfg config.HTTPConfig) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := prometheus.NewRegistry()
	coord := chatserver.New(
		session.NewRegistry(session.NewNameGenerator("Anonymous", 10000, 100, nil), 64),
		room.NewRegistry(),
		chatserver.DefaultCatalog(),
		observability.NewMetrics(reg),
		logger,
	)
	srv := NewServer(cfg, config.MetricsConfig{Enabled: true, Path: "/metrics"}, coord, reg, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return &harness{server: srv, http: ts, coord: coord}
}

func (h *harness) dial(t *testing.T, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/chatHub"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func (h *harness) connect(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := h.dial(t, testOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
}

func (f frame) str(t *testing.T, i int) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(f.Arguments[i], &s))
	return s
}

func send(t *testing.T, conn *websocket.Conn, target string, args ...any) {
	t.Helper()
	if args == nil {
		args = []any{}
	}
	require.NoError(t, conn.WriteJSON(map[string]any{"target": target, "arguments": args}))
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// expect reads frames until one carries target and returns it.
func expect(t *testing.T, conn *websocket.Conn, target string) frame {
	t.Helper()
	for {
		f := readFrame(t, conn)
		if f.Target == target {
			return f
		}
	}
}

type wireRoom struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MemberCount int    `json:"memberCount"`
	IsLocked    bool   `json:"isLocked"`
}

func rooms(t *testing.T, f frame) []wireRoom {
	t.Helper()
	require.Equal(t, "RoomList", f.Target)
	var out []wireRoom
	require.NoError(t, json.Unmarshal(f.Arguments[0], &out))
	return out
}

func TestHub_LobbyScenario(t *testing.T) {
	h := newHarness(t, testHTTPConfig())

	a := h.connect(t)
	nameA := readFrame(t, a)
	require.Equal(t, "SetNickDefault", nameA.Target)
	assert.True(t, strings.HasPrefix(nameA.str(t, 0), "Anonymous"))
	assert.Empty(t, rooms(t, readFrame(t, a)))

	send(t, a, "SetNickName", "alice")
	assert.Equal(t, "alice", expect(t, a, "SetNickOK").str(t, 0))

	send(t, a, "CreateRoom", "Lobby", "")
	expect(t, a, "CreateRoomOK")
	info := expect(t, a, "RoomInfo")
	assert.Equal(t, "Lobby", info.str(t, 0))
	list := rooms(t, expect(t, a, "RoomList"))
	require.Len(t, list, 1)
	assert.Equal(t, wireRoom{ID: list[0].ID, Title: "Lobby", MemberCount: 1}, list[0])

	b := h.connect(t)
	expect(t, b, "SetNickDefault")
	send(t, b, "JoinRoom", list[0].ID, "")
	assert.Contains(t, expect(t, a, "RoomSysMsg").str(t, 0), "Welcome")

	send(t, b, "RoomMsg", "hello")
	msg := expect(t, a, "RoomMsg")
	assert.Equal(t, "hello", msg.str(t, 1))
	msg = expect(t, b, "RoomMsg")
	assert.Equal(t, "hello", msg.str(t, 1))

	require.NoError(t, b.Close())
	left := expect(t, a, "RoomSysMsg")
	assert.Contains(t, left.str(t, 0), "left")

	require.Eventually(t, func() bool {
		return h.coord.Stats() == chatserver.Stats{Sessions: 1, Rooms: 1}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHub_CreateRoomErrIsReported(t *testing.T) {
	h := newHarness(t, testHTTPConfig())
	a := h.connect(t)
	expect(t, a, "RoomList")

	send(t, a, "CreateRoom", "", "")
	assert.NotEmpty(t, expect(t, a, "CreateRoomErr").str(t, 0))
}

func TestHub_IgnoresMalformedFrames(t *testing.T) {
	h := newHarness(t, testHTTPConfig())
	a := h.connect(t)
	expect(t, a, "RoomList")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, a, "Shout", "x")
	send(t, a, "SetNickName", 42)
	send(t, a, "SetNickName")

	// The connection survives and still handles well-formed frames.
	send(t, a, "SetNickName", "bob")
	assert.Equal(t, "bob", expect(t, a, "SetNickOK").str(t, 0))
}

func TestHub_RequestRoomList(t *testing.T) {
	h := newHarness(t, testHTTPConfig())
	a := h.connect(t)
	expect(t, a, "RoomList")

	send(t, a, "RequestRoomList")
	assert.Empty(t, rooms(t, expect(t, a, "RoomList")))
}

func TestHub_OversizedFrameClosesConnection(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.MaxMessageSize = 64
	h := newHarness(t, cfg)
	a := h.connect(t)
	expect(t, a, "RoomList")

	send(t, a, "RoomMsg", strings.Repeat("x", 200))
	require.Eventually(t, func() bool {
		return h.coord.Stats().Sessions == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHub_OriginCheck(t *testing.T) {
	h := newHarness(t, testHTTPConfig())

	_, resp, err := h.dial(t, "http://evil.test")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, _, err = h.dial(t, "")
	assert.Error(t, err)

	conn, _, err := h.dial(t, "HTTP://Chat.Test")
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHub_WildcardOrigin(t *testing.T) {
	cfg := testHTTPConfig()
	cfg.AllowedOrigins = []string{"*"}
	h := newHarness(t, cfg)

	conn, _, err := h.dial(t, "http://anywhere.test")
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, testHTTPConfig())
	a := h.connect(t)
	expect(t, a, "RoomList")
	send(t, a, "CreateRoom", "Lobby", "")
	expect(t, a, "CreateRoomOK")

	resp, err := http.Get(h.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, healthResponse{Status: "ok", Sessions: 1, Rooms: 1}, body)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, testHTTPConfig())
	a := h.connect(t)
	expect(t, a, "RoomList")

	resp, err := http.Get(h.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chat_connected_sessions 1")
}

func TestServer_ListenAndServeAndStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	coord := chatserver.New(
		session.NewRegistry(session.NewNameGenerator("Anonymous", 10000, 100, nil), 16),
		room.NewRegistry(),
		chatserver.DefaultCatalog(),
		observability.NewMetrics(prometheus.NewRegistry()),
		logger,
	)
	srv := NewServer(testHTTPConfig(), config.MetricsConfig{}, coord, nil, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	header := http.Header{"Origin": []string{testOrigin}}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/chatHub", header)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-errCh)
	assert.Equal(t, 0, coord.Stats().Sessions)
}
