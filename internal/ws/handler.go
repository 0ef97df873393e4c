package ws

import (
	"context"
	"net/http"
	"slices"

	"taprealm/internal/game"
	"taprealm/internal/logger"
	"taprealm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StateSource provides the snapshot sent on connect; its SquadID decides the
// squad topic. *service.GameService implements it.
type StateSource interface {
	State(ctx context.Context, userID int64) (game.Snapshot, error)
}

// HandleWS upgrades an authenticated request, ?token=<jwt>, to a push stream.
func HandleWS(hub *Hub, states StateSource, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		snap, err := states.State(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		initial, err := encode(service.EventState, snap)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "user_id", userID, "error", err)
			return
		}

		client := NewClient(userID, snap.SquadID, conn, hub)
		go client.Run(initial)
	}
}
