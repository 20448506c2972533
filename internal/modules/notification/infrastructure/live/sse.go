package live

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultKeepAlive keeps idle streams open through proxies.
const DefaultKeepAlive = 25 * time.Second

// ServeSSE registers s with the broker and streams its events as server-sent
// events until the client disconnects, the session is closed, or a write fails.
// Events already queued on s (such as the initial preference snapshot) go first.
func ServeSSE(w http.ResponseWriter, r *http.Request, b *Broker, s *Session, keepAlive time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("sse: response writer does not support flushing", "user_id", s.UserID())
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server write timeout would otherwise cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if !b.Add(s) {
		return
	}
	defer b.Remove(s)

	if _, err := fmt.Fprint(w, ": ok\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-s.Events():
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data); err != nil {
				logger.Debug("sse: write failed", "user_id", s.UserID(), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
