package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/models"
	"github.com/ternarybob/zola/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// WSMessage is the envelope of every message pushed to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// PlanUpdate is the payload of plan_updated messages
type PlanUpdate struct {
	Version uint64       `json:"version"`
	Op      string       `json:"op"`
	Plan    *models.Plan `json:"plan"`
}

// SessionHello is sent once when a client connects
type SessionHello struct {
	SessionID        string `json:"session_id"`
	ServerInstanceID string `json:"server_instance_id"`
}

// WebSocketHandler pushes plan snapshots to the clients of each session
type WebSocketHandler struct {
	logger           arbor.ILogger
	sessions         WorkspaceResolver
	upgrader         websocket.Upgrader
	serverInstanceID string // clients use it to detect a server restart

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// wsClient holds at most one pending plan change; newer changes replace
// older ones since each carries the full plan
type wsClient struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending *store.PlanChange
	sent    uint64
	hasSent bool

	wake chan struct{}
	done chan struct{}
}

func NewWebSocketHandler(sessions WorkspaceResolver, allowedOrigins []string, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		sessions:         sessions,
		serverInstanceID: common.NewInstanceID(),
		clients:          make(map[*wsClient]struct{}),
	}

	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(origins) == 0 || origins["*"] {
				return true
			}
			return origins[origin]
		},
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and streams plan_updated messages
// for the request's session, starting with the current snapshot
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws := h.sessions.Resolve(w, r)

	// session cookie rides on the upgrade response
	conn, err := h.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("session", ws.ID).Int("clients", total).Msg("WebSocket client connected")

	cancel := ws.Plans.Subscribe(client.offer)

	defer func() {
		cancel()
		close(client.done)

		h.mu.Lock()
		delete(h.clients, client)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Str("session", ws.ID).Int("remaining", remaining).Msg("WebSocket client disconnected")
	}()

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(WSMessage{
		Type:    "session",
		Payload: SessionHello{SessionID: ws.ID, ServerInstanceID: h.serverInstanceID},
	}); err != nil {
		return
	}

	client.offer(store.PlanChange{Version: ws.Plans.Version(), Op: "snapshot", Plan: ws.Plans.Current()})
	common.SafeGo(h.logger, "websocketWriter", func() {
		h.writeLoop(client)
	})

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

func (c *wsClient) offer(change store.PlanChange) {
	c.mu.Lock()
	if c.pending == nil || change.Version >= c.pending.Version {
		c.pending = &change
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *wsClient) take() (store.PlanChange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return store.PlanChange{}, false
	}
	change := *c.pending
	c.pending = nil
	if c.hasSent && change.Version <= c.sent {
		return store.PlanChange{}, false
	}
	c.sent = change.Version
	c.hasSent = true
	return change, true
}

func (h *WebSocketHandler) writeLoop(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case <-c.wake:
			change, ok := c.take()
			if !ok {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err := c.conn.WriteJSON(WSMessage{
				Type:    "plan_updated",
				Payload: PlanUpdate{Version: change.Version, Op: change.Op, Plan: change.Plan},
			})
			if err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send plan update to client")
				c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll sends a close frame to every client
func (h *WebSocketHandler) CloseAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.conn.Close()
	}
}
