package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// StreamPath is where the websocket endpoint is mounted.
const StreamPath = "/events"

const (
	typeStateInit = "state_init"

	defaultSendBuf      = 32
	defaultBroadcastBuf = 128

	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	shutdownTimeout = 2 * time.Second
)

// envelope is the wire format of every stream message.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// eventData is the payload of a break event message.
type eventData struct {
	Break               domain.BreakKind `json:"break,omitempty"`
	NaturalContinuation bool             `json:"natural_continuation,omitempty"`
	Snapshot            domain.Snapshot  `json:"snapshot"`
	NextMiniIn          float64          `json:"next_mini_in"`
	NextWorkIn          float64          `json:"next_work_in"`
	BreakRemaining      float64          `json:"break_remaining"`
}

// ViewSource provides the view sent to newly connected clients.
type ViewSource interface {
	View() domain.View
}

// Hub tracks connected clients and fans out serialized frames.
type Hub struct {
	logger *zap.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int

	running  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *zap.Logger, sendBuf, broadcastBuf int) *Hub {
	if sendBuf <= 0 {
		sendBuf = defaultSendBuf
	}
	if broadcastBuf <= 0 {
		broadcastBuf = defaultBroadcastBuf
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is canceled.
// A hub runs at most once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.doneOnce.Do(func() { close(h.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("stream client connected", zap.String("remote_addr", c.remoteAddr), zap.Int("clients", n))

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Running reports whether Run is draining the hub.
func (h *Hub) Running() bool {
	return h.running.Load()
}

// join registers c, or closes it when the hub has stopped.
func (h *Hub) join(c *Client) {
	select {
	case <-h.done:
		c.close()
		return
	default:
	}
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// leave unregisters c. It never blocks once the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast enqueues a frame without blocking. Frames are dropped when the queue is full.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("stream broadcast queue full, dropping message", zap.Int("bytes", len(msg)))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("stream client disconnected",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("reason", reason),
			zap.Int("clients", n))
	}
}

// Client is one websocket connection with its own outbound queue.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	closeOnce  sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, hub.sendBuf),
		remoteAddr: remoteAddr,
	}
}

// close closes the send queue, which ends writePump. Safe to call twice.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.send)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and unregisters the client on disconnect.
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.hub.leave(c)
			return
		}
	}
}

// StreamServer publishes engine events to websocket clients.
// It implements domain.EventSink.
type StreamServer struct {
	addr     string
	source   ViewSource
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewStreamServer creates a stream server listening on addr.
func NewStreamServer(addr string, source ViewSource, logger *zap.Logger) *StreamServer {
	return &StreamServer{
		addr:   addr,
		source: source,
		hub:    NewHub(logger, defaultSendBuf, defaultBroadcastBuf),
		logger: logger,
		upgrader: websocket.Upgrader{
			// local clients only; the listener is bound to loopback by default
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Hub returns the client hub.
func (s *StreamServer) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler serving StreamPath.
func (s *StreamServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(StreamPath, s.handleEvents)
	return mux
}

// Run starts the hub and serves HTTP until ctx is canceled.
func (s *StreamServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go s.hub.Run(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("event stream listening", zap.String("addr", "ws://"+listener.Addr().String()+StreamPath))

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *StreamServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("stream upgrade failed", zap.Error(err))
		return
	}

	client := newClient(s.hub, conn, r.RemoteAddr)

	// state_init is queued before registration so it is always the first frame.
	if msg, err := s.marshal(typeStateInit, s.source.View()); err == nil {
		client.send <- msg
	}
	s.hub.join(client)

	go client.writePump()
	go client.readPump()
}

// HandleEvents broadcasts one frame per event.
// status_update and break_update are sent only when the snapshot moved.
// Nothing is queued while the hub is not running.
func (s *StreamServer) HandleEvents(batch domain.EventBatch, view domain.View) {
	if !s.hub.Running() {
		return
	}
	for _, ev := range batch.Events {
		switch ev.Kind {
		case domain.EventStatusUpdate, domain.EventBreakUpdate:
			if !batch.SnapshotChanged {
				continue
			}
		}

		msg, err := s.marshal(string(ev.Kind), eventData{
			Break:               ev.Break,
			NaturalContinuation: ev.NaturalContinuation,
			Snapshot:            view.Snapshot,
			NextMiniIn:          view.NextMiniIn(),
			NextWorkIn:          view.NextWorkIn(),
			BreakRemaining:      view.BreakRemaining(),
		})
		if err != nil {
			s.logger.Warn("stream marshal failed", zap.Error(err), zap.Stringer("event", ev))
			continue
		}
		s.hub.Broadcast(msg)
	}
}

func (s *StreamServer) marshal(typ string, data any) ([]byte, error) {
	ts := s.now().UTC()
	return json.Marshal(envelope{Type: typ, Ts: &ts, Data: data})
}

var _ domain.EventSink = (*StreamServer)(nil)
