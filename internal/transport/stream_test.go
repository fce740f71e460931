package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func registerClient(t *testing.T, hub *Hub, name string, buf int) *Client {
	t.Helper()
	c := &Client{hub: hub, send: make(chan []byte, buf), remoteAddr: name}
	before := hub.ClientCount()
	hub.register <- c
	require.Eventually(t, func() bool { return hub.ClientCount() == before+1 },
		500*time.Millisecond, 5*time.Millisecond, "%s not registered", name)
	return c
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestHub_BroadcastToAllClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), 4, 8)
	runHub(t, hub)

	c1 := registerClient(t, hub, "c1", 4)
	c2 := registerClient(t, hub, "c2", 4)

	msg := []byte(`{"type":"mini_break_start"}`)
	hub.broadcast <- msg

	assert.Equal(t, msg, receive(t, c1.send))
	assert.Equal(t, msg, receive(t, c2.send))
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1, 8)
	runHub(t, hub)

	slow := registerClient(t, hub, "slow", 1)
	fast := registerClient(t, hub, "fast", 8)

	hub.broadcast <- []byte("one")
	hub.broadcast <- []byte("two")

	assert.Equal(t, []byte("one"), receive(t, fast.send))
	assert.Equal(t, []byte("two"), receive(t, fast.send))

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		500*time.Millisecond, 5*time.Millisecond)

	// the slow client keeps its buffered frame, then sees the close
	assert.Equal(t, []byte("one"), <-slow.send)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_BroadcastDropsWhenQueueFull(t *testing.T) {
	// hub not running, so nothing drains the queue
	hub := NewHub(zap.NewNop(), 1, 1)
	hub.Broadcast([]byte("kept"))
	hub.Broadcast([]byte("dropped"))

	assert.Len(t, hub.broadcast, 1)
}

type staticSource struct{ view domain.View }

func (s staticSource) View() domain.View { return s.view }

func TestStreamServer_HandleEventsFiltersUnchangedSnapshots(t *testing.T) {
	s := NewStreamServer("", staticSource{}, zap.NewNop())
	runHub(t, s.hub)
	c := registerClient(t, s.hub, "c", 8)
	state := domain.NewState(nil)

	s.HandleEvents(domain.EventBatch{
		Events: []domain.Event{{Kind: domain.EventBreakUpdate, Break: domain.BreakMini}, {Kind: domain.EventStatusUpdate}},
	}, state.View())
	s.HandleEvents(domain.EventBatch{
		Events:          []domain.Event{{Kind: domain.EventPaused}, {Kind: domain.EventStatusUpdate}},
		SnapshotChanged: true,
	}, state.View())

	var first, second envelope
	require.NoError(t, json.Unmarshal(receive(t, c.send), &first))
	require.NoError(t, json.Unmarshal(receive(t, c.send), &second))
	assert.Equal(t, string(domain.EventPaused), first.Type)
	assert.Equal(t, string(domain.EventStatusUpdate), second.Type)
	assert.Len(t, c.send, 0)
}

func TestStreamServer_BusyPortDoesNotQueueEvents(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	core, logs := observer.New(zap.WarnLevel)
	s := NewStreamServer(busy.Addr().String(), staticSource{}, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Error(t, s.Run(ctx))
	assert.False(t, s.Hub().Running())

	state := domain.NewState(nil)
	for i := 0; i < 300; i++ {
		next := domain.Reduce(state, domain.Tick{DtSeconds: 0.5})
		s.HandleEvents(domain.DeriveEvents(state, next, domain.Tick{DtSeconds: 0.5}), next.View())
		state = next
	}

	assert.Len(t, s.hub.broadcast, 0)
	assert.Equal(t, 0, logs.Len())
}

func TestHub_LeaveAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop(), 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		hub.Run(ctx)
	}()
	require.Eventually(t, hub.Running, 500*time.Millisecond, 5*time.Millisecond)
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2*cap(hub.unregister); i++ {
			hub.leave(&Client{hub: hub, send: make(chan []byte, 1)})
		}
		late := &Client{hub: hub, send: make(chan []byte, 1)}
		hub.join(late)
		_, ok := <-late.send
		assert.False(t, ok, "late client should be closed")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after hub stopped")
	}
	assert.False(t, hub.Running())
}

type wireMessage struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func readWire(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamServer_EndToEnd(t *testing.T) {
	state := domain.NewState(nil)
	s := NewStreamServer("", staticSource{view: state.View()}, zap.NewNop())
	runHub(t, s.hub)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + StreamPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initMsg := readWire(t, conn)
	assert.Equal(t, typeStateInit, initMsg.Type)
	var view domain.View
	require.NoError(t, json.Unmarshal(initMsg.Data, &view))
	assert.Equal(t, domain.DefaultConfig(), view.Config)

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	next := domain.Reduce(state, domain.StartWorkBreak{NaturalContinuation: true})
	s.HandleEvents(domain.DeriveEvents(state, next, domain.StartWorkBreak{NaturalContinuation: true}), next.View())

	start := readWire(t, conn)
	assert.Equal(t, string(domain.EventWorkBreakStart), start.Type)
	var data eventData
	require.NoError(t, json.Unmarshal(start.Data, &data))
	assert.True(t, data.NaturalContinuation)
	assert.Equal(t, domain.StatusInWork, data.Snapshot.Status)
	assert.Equal(t, 480.0, data.BreakRemaining)

	update := readWire(t, conn)
	assert.Equal(t, string(domain.EventStatusUpdate), update.Type)
}
