package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/stockypocky/stockyweb/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a Hub
// client for the signed-in user. originPatterns lists extra hosts allowed to
// connect cross-origin.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok || ac.UserID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Warn("accept", "error", err)
			return
		}

		NewClient(hub, conn, ac.UserID, ac.ExpiresAt).Run(r.Context())
	}
}
