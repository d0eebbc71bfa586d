package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/oakline/callbridge/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub bridges the Redis channel to WebSocket clients so dashboards update
// without polling. Each connection holds its own subscription; dropping the
// socket tears the subscription down.
type Hub struct {
	client *redis.Client
	prefix string
	logger *logging.Logger

	upgrader websocket.Upgrader
}

// NewHub creates a WebSocket bridge over the given Redis client.
func NewHub(client *redis.Client, prefix string, logger *logging.Logger) *Hub {
	if client == nil {
		panic("realtime: redis client required")
	}
	if prefix == "" {
		prefix = "calls"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		client: client,
		prefix: prefix,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin enforcement happens in the CORS/auth layers above.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and streams the org's interaction events.
// The org is taken from the ?org query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	orgID := strings.TrimSpace(r.URL.Query().Get("org"))
	if orgID == "" {
		http.Error(w, "org query parameter required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	channel := h.prefix + ":org:" + orgID
	sub := h.client.Subscribe(r.Context(), channel)
	h.logger.Info("realtime subscriber connected", "channel", channel, "remote", r.RemoteAddr)

	done := make(chan struct{})
	go h.writePump(conn, sub, done)
	h.readPump(conn)
	close(done)
	_ = sub.Close()
	_ = conn.Close()
	h.logger.Info("realtime subscriber disconnected", "channel", channel)
}

// readPump drains client frames so close and pong control messages are
// processed; subscribers never send application data.
func (h *Hub) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *redis.PubSub, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	ch := sub.Channel()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Warn("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
