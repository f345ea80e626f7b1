package devserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kbscrape/scrape-cli/internal/model"
	"github.com/kbscrape/scrape-cli/pkg/scrapeapi"
)

// hub broadcasts job_update envelopes to every connected websocket client.
// Filtering by job id is a client concern, mirroring the engine's behavior.
type hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	// Advisory connection confirmation; sent before the conn is visible to
	// broadcasts since the connection allows only one writer at a time.
	_ = conn.WriteJSON(map[string]any{
		"event": scrapeapi.EventConnected,
		"data":  map[string]string{"message": "Connected to scraper"},
	})

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Drain reads so close frames are processed; drop the conn on error.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcastUpdate sends a job_update to all clients. Write failures drop
// the client silently.
func (h *hub) broadcastUpdate(st model.JobStatus) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	env := map[string]any{"event": scrapeapi.EventJobUpdate, "data": st}
	for _, c := range conns {
		if err := c.WriteJSON(env); err != nil {
			h.drop(c)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}
