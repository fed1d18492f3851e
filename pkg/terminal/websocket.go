package terminal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/antibyte/retrosheet/pkg/auth"
	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/shared"

	"github.com/gorilla/websocket"
)

// Websocket tuning values live in the [Network] section of settings.cfg.

func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	pongWait := getPongWait()
	return (pongWait * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 64) * 1024)
}

func getMaxChannelBuffer() int {
	return configuration.GetInt("Network", "max_channel_buffer", 10000)
}

func getMaxMessagesPerSecond() int {
	return configuration.GetInt("Network", "max_messages_per_second", 50)
}

func getClientTimeout() time.Duration {
	return configuration.GetDuration("Network", "client_timeout", 30*time.Second)
}

var newline = []byte{'\n'}

// readPump reads client frames and drives the editor session. One
// reader per connection keeps the editor single-threaded.
func (c *Client) readPump() {
	defer c.handler.cleanupClient(c)

	c.conn.SetReadLimit(getMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	budget := getMaxMessagesPerSecond()
	windowStart := time.Now()
	windowCount := 0

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				logger.WebSocketWarn("Unexpected close for session %s: %v", c.sessionID, err)
			}
			return
		}

		now := time.Now()
		if now.Sub(windowStart) > time.Second {
			windowStart = now
			windowCount = 0
		}
		windowCount++
		if windowCount > budget {
			logger.SecurityWarn("Message rate exceeded for %s (session %s), closing connection", c.ipAddress, c.sessionID)
			return
		}

		msg, err := c.handler.validator.ParseClientMessage(data)
		if err != nil {
			logger.WebSocketWarn("Rejected frame from %s: %v", c.ipAddress, err)
			continue
		}

		switch msg.Type {
		case shared.MessageTypeKey:
			if !c.handler.editors.ProcessKey(c.sessionID, msg.Key) {
				logger.Info(logger.AreaTerminal, "Editor gone for session %s, closing client", c.sessionID)
				return
			}
		case shared.MessageTypeResize:
			if ed := c.handler.editors.Get(c.sessionID); ed != nil {
				ed.Resize(msg.Rows, msg.Cols)
			}
		case shared.MessageTypeAuthRefresh:
			if err := c.refreshAuth(msg.Content); err != nil {
				logger.SecurityWarn("Auth refresh rejected for session %s: %v", c.sessionID, err)
				return
			}
		}
	}
}

// refreshAuth verifies a renewed token. Long-lived connections outlive
// the guest token lifetime, so the frontend re-sends its token after a
// refresh and we only check that it still names this session.
func (c *Client) refreshAuth(tokenString string) error {
	identity, err := auth.IdentityFromToken(tokenString)
	if err != nil {
		return err
	}
	if identity.SessionID != c.sessionID {
		return fmt.Errorf("token names session %s, connection is %s", identity.SessionID, c.sessionID)
	}
	logger.AuthDebug("Token refreshed for session %s", c.sessionID)
	return nil
}

// writePump drains the output channel onto the connection and keeps the
// client alive with pings. Queued messages are batched newline-joined
// into a single frame; the frontend splits them again.
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.output:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))

			data, err := json.Marshal(msg)
			if err != nil {
				logger.WebSocketError("Marshal failed for session %s: %v", c.sessionID, err)
				continue
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			queued := len(c.output)
			for i := 0; i < queued; i++ {
				data, err := json.Marshal(<-c.output)
				if err != nil {
					continue
				}
				w.Write(newline)
				w.Write(data)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.shutdown:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
