package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the connection and runs it as a hub client until
// the fan app disconnects.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			// Fan apps and admin dashboards connect from their own origins.
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "remote", r.RemoteAddr, "error", err)
			return
		}

		NewClient(hub, conn).Run(r.Context())
	}
}
