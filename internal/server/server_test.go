package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdk/komari-sub001/internal/bot"
	"github.com/thisdk/komari-sub001/internal/game"
)

type fakeSource struct {
	mu       sync.Mutex
	snapshot bot.Snapshot
}

func (f *fakeSource) Snapshot() bot.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeSource) Halt()   { f.setHalting(true) }
func (f *fakeSource) Resume() { f.setHalting(false) }

func (f *fakeSource) setHalting(halting bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.Halting = halting
}

func (f *fakeSource) advance(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.Tick++
	f.snapshot.State = state
}

func newTestServer(t *testing.T) (*Server, *fakeSource, *httptest.Server) {
	t.Helper()

	source := &fakeSource{snapshot: bot.Snapshot{
		Name:     "komari",
		Tick:     7,
		State:    "Idle",
		Position: &game.Point{X: 10, Y: 20},
	}}
	s := New("127.0.0.1:0", source, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.interval = 10 * time.Millisecond

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return s, source, srv
}

func decodeSnapshot(t *testing.T, r io.Reader) bot.Snapshot {
	t.Helper()

	var snapshot bot.Snapshot
	require.NoError(t, json.NewDecoder(r).Decode(&snapshot))
	return snapshot
}

func TestStatusReturnsSnapshot(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	snapshot := decodeSnapshot(t, resp.Body)
	assert.Equal(t, uint64(7), snapshot.Tick)
	assert.Equal(t, "Idle", snapshot.State)
	assert.Equal(t, &game.Point{X: 10, Y: 20}, snapshot.Position)
}

func TestHaltAndResume(t *testing.T) {
	_, source, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/halt", "application/json", nil)
	require.NoError(t, err)
	assert.True(t, decodeSnapshot(t, resp.Body).Halting)
	resp.Body.Close()
	assert.True(t, source.Snapshot().Halting)

	resp, err = http.Post(srv.URL+"/resume", "application/json", nil)
	require.NoError(t, err)
	assert.False(t, decodeSnapshot(t, resp.Body).Halting)
	resp.Body.Close()
}

func TestHaltRejectsGet(t *testing.T) {
	_, source, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/halt")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.False(t, source.Snapshot().Halting)
}

func TestStreamPushesChangedSnapshots(t *testing.T) {
	_, source, srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first bot.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, uint64(7), first.Tick)

	source.advance("Moving")

	var second bot.Snapshot
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, uint64(8), second.Tick)
	assert.Equal(t, "Moving", second.State)
}

func TestRunStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := New(addr, &fakeSource{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
