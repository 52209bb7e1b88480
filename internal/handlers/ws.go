package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/monocle-dev/workspace/internal/utils"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// wsClient serialises writes; gorilla connections allow one concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks websocket subscribers per project and pushes refresh events to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*wsClient]bool
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewHub accepts upgrades from the allowed browser origins. Requests without an Origin
// header (non-browser clients such as the terminal UI) are always accepted.
func NewHub(allowedOrigins []string, log *zap.SugaredLogger) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		clients: make(map[string]map[*wsClient]bool),
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

func (hub *Hub) register(projectID string, c *wsClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.clients[projectID] == nil {
		hub.clients[projectID] = make(map[*wsClient]bool)
	}
	hub.clients[projectID][c] = true
}

func (hub *Hub) unregister(projectID string, c *wsClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if clients, exists := hub.clients[projectID]; exists {
		delete(clients, c)
		if len(clients) == 0 {
			delete(hub.clients, projectID)
		}
	}
}

// Subscribers returns the number of open connections for projectID.
func (hub *Hub) Subscribers(projectID string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients[projectID])
}

func (hub *Hub) BroadcastRefresh(projectID string) {
	hub.mu.RLock()
	clients := make([]*wsClient, 0, len(hub.clients[projectID]))
	for c := range hub.clients[projectID] {
		clients = append(clients, c)
	}
	hub.mu.RUnlock()

	event := types.ProjectEvent{
		Type:      types.EventRefresh,
		Message:   "Project data updated",
		ProjectID: projectID,
	}

	for _, c := range clients {
		if err := c.writeJSON(event); err != nil {
			hub.log.Warnw("failed to broadcast refresh", "project_id", projectID, "error", err)
			hub.unregister(projectID, c)
			c.conn.Close()
		}
	}
}

// Close drops every open connection.
func (hub *Hub) Close() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for projectID, clients := range hub.clients {
		for c := range clients {
			c.conn.Close()
		}
		delete(hub.clients, projectID)
	}
}

func (hub *Hub) serve(ctx *gin.Context, projectID string) {
	conn, err := hub.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		hub.log.Warnw("websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}

	c := &wsClient{conn: conn}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	hub.register(projectID, c)

	defer func() {
		hub.unregister(projectID, c)
		conn.Close()
		hub.log.Debugw("websocket connection closed", "project_id", projectID)
	}()

	err = c.writeJSON(types.ProjectEvent{
		Type:      types.EventConnected,
		Message:   "WebSocket connection established",
		ProjectID: projectID,
	})
	if err != nil {
		hub.log.Warnw("failed to send welcome message", "project_id", projectID, "error", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.log.Warnw("websocket error", "project_id", projectID, "error", err)
			}
			return
		}
	}
}

// ProjectSocket upgrades to a websocket that receives refresh events for one project.
func (h *Handler) ProjectSocket(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetProject(ctx.Request.Context(), projectID); err != nil {
		h.writeError(ctx, err, "Project not found", "Failed to retrieve project")
		return
	}

	h.hub.serve(ctx, projectID)
}
