package hub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin dials are allowed; auth happens via the JWT, not the
	// Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Session is one WebSocket connection belonging to an authenticated user.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Serve upgrades the request and runs the session until the peer goes away.
// The authenticated user id must already be set on the gin context.
func (h *Hub) Serve(c *gin.Context) {
	uid := c.GetString("user")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug(c.Request.Context(), "WebSocket upgrade failed", "error", err)
		return
	}

	s := &Session{hub: h, conn: conn, userID: uid, send: make(chan []byte, sendBufferSize)}
	h.add(s)
	logger.Debug(c.Request.Context(), "Session connected", "user_id", uid)

	go s.writePump()
	go s.readPump()
}

// readPump drains inbound frames. Clients do not send anything meaningful;
// the read loop exists to notice disconnects and answer pings.
func (s *Session) readPump() {
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
