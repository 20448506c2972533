package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS middleware in front of this handler.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeWS upgrades the request and pumps session events as JSON frames. Pings are
// sent every keepAlive; a peer that stops answering them is disconnected.
func ServeWS(w http.ResponseWriter, r *http.Request, b *Broker, s *Session, keepAlive time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket: upgrade failed", "user_id", s.UserID(), "error", err)
		return
	}
	if !b.Add(s) {
		conn.Close()
		return
	}

	go readPump(conn, b, s, 2*keepAlive)
	writePump(conn, b, s, keepAlive)
}

// readPump only watches for the peer going away; inbound messages are ignored.
func readPump(conn *websocket.Conn, b *Broker, s *Session, pongWait time.Duration) {
	defer func() {
		b.Remove(s)
		conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, b *Broker, s *Session, keepAlive time.Duration) {
	ticker := time.NewTicker(keepAlive)
	defer func() {
		ticker.Stop()
		b.Remove(s)
		conn.Close()
	}()
	for {
		select {
		case ev := <-s.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame{Event: ev.Name, Data: ev.Data}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
