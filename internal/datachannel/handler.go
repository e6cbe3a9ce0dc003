package datachannel

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/omkarlalla-code/kiosk-project/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// ServeWS upgrades r into a WebSocket connection standing in for the SFU
// datachannel and joins it to roomID. The read loop only handles
// keepalive pings; the kiosk client never sends Control Messages upstream
// on this channel.
func (rt *Router) ServeWS(roomID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("datachannel: upgrade failed", "error", err)
			return
		}

		rt.Join(roomID, conn)
		defer rt.Leave(roomID, conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
