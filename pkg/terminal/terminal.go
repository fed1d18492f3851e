// Package terminal serves the browser frontend over websocket: it
// upgrades connections, binds each one to an editor session, and
// shuttles shared.Message frames in both directions.
package terminal

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antibyte/retrosheet/pkg/auth"
	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/editor"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/shared"
	"github.com/antibyte/retrosheet/pkg/store"
	"github.com/antibyte/retrosheet/pkg/tabular"

	"github.com/gorilla/websocket"
)

func getMaxClients() int {
	return configuration.GetInt("Server", "max_concurrent_users", 50)
}

// TerminalHandler owns the websocket endpoint. It upgrades connections,
// starts an editor per session, and reaps idle sessions.
type TerminalHandler struct {
	editors  *editor.Manager
	registry *tabular.Registry
	store    store.Store

	clientManager *ClientManager
	validator     *MessageValidator
	upgrader      websocket.Upgrader

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// Client is one connected websocket terminal. The reader goroutine
// drives the editor; the writer goroutine owns the connection's write
// side and drains the output channel.
type Client struct {
	conn      *websocket.Conn
	output    chan shared.Message
	handler   *TerminalHandler
	ipAddress string
	sessionID string
	owner     string
	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewTerminalHandler wires the websocket endpoint to the editor
// manager. The store may be nil, which disables sheet persistence.
func NewTerminalHandler(registry *tabular.Registry, st store.Store) *TerminalHandler {
	h := &TerminalHandler{
		editors:       editor.GetManager(),
		registry:      registry,
		store:         st,
		clientManager: NewClientManager(),
		validator:     NewMessageValidator(),
		shutdown:      make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  configuration.GetInt("Network", "read_buffer_size", 16384),
			WriteBufferSize: configuration.GetInt("Network", "write_buffer_size", 16384),
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					logger.SecurityWarn("Websocket request without Origin header rejected")
					return false
				}

				allowed := configuration.GetString("Network", "allowed_origins", "http://localhost:8080,http://127.0.0.1:8080")
				for _, candidate := range strings.Split(allowed, ",") {
					if origin == strings.TrimSpace(candidate) {
						return true
					}
				}

				logger.SecurityWarn("Websocket request from disallowed origin rejected: %s", origin)
				return false
			},
		},
	}

	go h.reapLoop()

	return h
}

// HandleWebSocket upgrades a request and binds it to an editor session.
// The route must be wrapped in auth.RequireSession so the identity is
// already resolved.
func (h *TerminalHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ipAddress := clientIP(r)

	if err := h.clientManager.CheckRateLimit(ipAddress); err != nil {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	if h.clientManager.GetClientCount() >= getMaxClients() {
		logger.Warn(logger.AreaTerminal, "Client limit reached, rejecting connection from %s", ipAddress)
		http.Error(w, "Server overloaded", http.StatusServiceUnavailable)
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		logger.AuthWarn("Websocket request without identity from %s", ipAddress)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.validator.ValidateSessionID(identity.SessionID); err != nil {
		logger.SecurityWarn("Rejected session ID from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WebSocketError("Upgrade failed for %s: %v", ipAddress, err)
		return
	}

	client := &Client{
		conn:      conn,
		output:    make(chan shared.Message, getMaxChannelBuffer()),
		handler:   h,
		ipAddress: ipAddress,
		sessionID: identity.SessionID,
		owner:     identity.Owner(),
		shutdown:  make(chan struct{}),
	}

	if prev := h.clientManager.AddClient(client.sessionID, client); prev != nil {
		logger.Info(logger.AreaTerminal, "Replacing connection for session %s", client.sessionID)
		h.cleanupClient(prev)
	}

	// The session handover goes out first so the frontend knows its ID
	// before the first render arrives.
	client.output <- shared.Message{Type: shared.MessageTypeSession, SessionID: client.sessionID}

	h.editors.Start(editor.Config{
		SessionID: client.sessionID,
		Owner:     client.owner,
		Output:    client.output,
		Registry:  h.registry,
		Store:     h.store,
	})

	go client.writePump()
	go client.readPump()

	logger.Info(logger.AreaTerminal, "Client connected: %s (session %s, owner %s)", ipAddress, client.sessionID, client.owner)
}

// cleanupClient tears one connection down. Safe to call more than once
// and from any goroutine. The editor session dies with the connection
// unless a newer connection already took the session over.
func (h *TerminalHandler) cleanupClient(c *Client) {
	c.closeOnce.Do(func() {
		close(c.shutdown)
		c.conn.Close()

		if h.clientManager.RemoveClient(c.sessionID, c) {
			h.editors.CloseSession(c.sessionID)
			logger.Info(logger.AreaTerminal, "Client disconnected: %s (session %s)", c.ipAddress, c.sessionID)
		}
	})
}

// reapLoop periodically closes idle editor sessions and drops clients
// whose sessions are gone.
func (h *TerminalHandler) reapLoop() {
	interval := configuration.GetDuration("Server", "session_cleanup_interval", 30*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			maxInactive := configuration.GetDuration("Server", "max_inactive_time", 30*time.Minute)
			if closed := h.editors.CloseIdle(maxInactive); closed > 0 {
				logger.Info(logger.AreaSession, "Closed %d idle editor sessions", closed)
			}
			for _, c := range h.clientManager.Clients() {
				if h.editors.Get(c.sessionID) == nil {
					logger.Info(logger.AreaSession, "Dropping client for expired session %s", c.sessionID)
					h.cleanupClient(c)
				}
			}
			h.clientManager.PruneRateLimits(10 * time.Minute)
		case <-h.shutdown:
			return
		}
	}
}

// Shutdown closes every connection and stops the reaper.
func (h *TerminalHandler) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
	for _, c := range h.clientManager.Clients() {
		h.cleanupClient(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *TerminalHandler) ClientCount() int {
	return h.clientManager.GetClientCount()
}

// clientIP resolves the originating address, honoring the first hop of
// X-Forwarded-For when a proxy sits in front.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return r.RemoteAddr
}
