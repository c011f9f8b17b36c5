package events

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for demo; restrict in production
	},
}

// WSHandler subscribes a client to one pair's event room. Clients are
// listeners only; incoming frames are drained and dropped.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		pairID := strings.TrimSpace(c.Query("pair"))
		if pairID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pair is required"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		history := hub.Join(pairID, ws)
		log.Printf("[events] client joined pair %s", pairID)
		for _, ev := range history {
			_ = ws.WriteJSON(ev)
		}

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.Leave(pairID, ws)
		log.Printf("[events] client left pair %s", pairID)
	}
}
