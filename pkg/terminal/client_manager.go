package terminal

import (
	"fmt"
	"sync"
	"time"

	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/shared"
)

// Connection attempts allowed per IP within a rolling minute.
const maxConnectionsPerMinute = 30

// RateLimitInfo tracks connection attempts for one IP.
type RateLimitInfo struct {
	requests  int
	lastReset time.Time
}

// ClientManager tracks the connected client per session and throttles
// connection attempts per IP. A session has at most one client; a new
// connection for the same session replaces the old one.
type ClientManager struct {
	clients    map[string]*Client        // sessionID -> Client
	rateLimits map[string]*RateLimitInfo // ipAddress -> RateLimitInfo
	mu         sync.RWMutex
}

// NewClientManager creates an empty ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[string]*Client),
		rateLimits: make(map[string]*RateLimitInfo),
	}
}

// AddClient registers the client for its session and returns the client
// it replaced, if any. The caller is responsible for shutting the
// replaced client down.
func (cm *ClientManager) AddClient(sessionID string, client *Client) *Client {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	prev := cm.clients[sessionID]
	cm.clients[sessionID] = client
	logger.Debug(logger.AreaSession, "Client registered for session %s", sessionID)
	return prev
}

// RemoveClient unregisters the client. It reports false when the client
// is no longer the one registered for the session, which happens after
// a newer connection took the session over.
func (cm *ClientManager) RemoveClient(sessionID string, client *Client) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.clients[sessionID] != client {
		return false
	}
	delete(cm.clients, sessionID)
	logger.Debug(logger.AreaSession, "Client unregistered for session %s", sessionID)
	return true
}

// Client returns the connected client for a session, or nil.
func (cm *ClientManager) Client(sessionID string) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[sessionID]
}

// Clients returns a snapshot of all connected clients.
func (cm *ClientManager) Clients() []*Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	clients := make([]*Client, 0, len(cm.clients))
	for _, client := range cm.clients {
		clients = append(clients, client)
	}
	return clients
}

// HasClient reports whether a client is connected for the session.
func (cm *ClientManager) HasClient(sessionID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.clients[sessionID]
	return exists
}

// GetClientCount returns the number of connected clients.
func (cm *ClientManager) GetClientCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// SendToClient queues a message for a session's client. The output
// channel is large, so running into the timeout means the writer is
// wedged and the client is as good as gone.
func (cm *ClientManager) SendToClient(sessionID string, message shared.Message) error {
	cm.mu.RLock()
	client, exists := cm.clients[sessionID]
	cm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no client for session %s", sessionID)
	}

	select {
	case client.output <- message:
		return nil
	case <-time.After(getClientTimeout()):
		logger.Warn(logger.AreaWebSocket, "Send timeout for session %s", sessionID)
		return fmt.Errorf("send timeout for session %s", sessionID)
	}
}

// CheckRateLimit counts a connection attempt from the IP and rejects it
// once the IP exceeds the per-minute budget.
func (cm *ClientManager) CheckRateLimit(ipAddress string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := time.Now()

	info, exists := cm.rateLimits[ipAddress]
	if !exists {
		info = &RateLimitInfo{lastReset: now}
		cm.rateLimits[ipAddress] = info
	}

	if now.Sub(info.lastReset) > time.Minute {
		info.requests = 0
		info.lastReset = now
	}

	info.requests++
	if info.requests > maxConnectionsPerMinute {
		logger.SecurityWarn("Connection rate limit exceeded for IP %s: %d attempts in the last minute", ipAddress, info.requests)
		return fmt.Errorf("rate limit exceeded for %s", ipAddress)
	}

	return nil
}

// PruneRateLimits drops rate limit entries whose window expired long
// ago, so the map does not grow with every IP ever seen.
func (cm *ClientManager) PruneRateLimits(maxAge time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for ip, info := range cm.rateLimits {
		if info.lastReset.Before(cutoff) {
			delete(cm.rateLimits, ip)
		}
	}
}
