package admin

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wagiedev/voice-tool-router/internal/flags"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// events streams engine events as JSON websocket messages. A monitor that
// falls behind loses events rather than stalling the engine.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	ch := make(chan flags.Event, eventBuffer)

	unsubscribe := h.engine.Subscribe(func(ev flags.Event) {
		select {
		case ch <- ev:
		default:
			h.log.Warn("Dropping event for slow monitor", "event", ev.Type, "id", ev.ID)
		}
	})
	defer unsubscribe()

	// Subscribed before the upgrade so no event after the handshake is missed.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)

		return
	}
	defer conn.Close()

	h.log.Info("Event monitor connected", "remote", r.RemoteAddr)

	// Reads only detect the peer going away.
	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Info("Event monitor write failed", "error", err)

				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-closed:
			h.log.Info("Event monitor disconnected", "remote", r.RemoteAddr)

			return
		case <-r.Context().Done():
			return
		}
	}
}
