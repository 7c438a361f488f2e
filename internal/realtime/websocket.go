package realtime

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// WebSocketConn wraps websocket.Conn so the hub does not depend on the transport.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

type clientMessage struct {
	Type string `json:"type"`
}

// Serve pumps hub messages to the socket until the peer goes away.
// Inbound frames are only read to answer pings and detect disconnects.
func (h *Hub) Serve(client *Client) {
	h.RegisterClient(client)
	defer h.UnregisterClient(client)

	c := client.Conn.Conn
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("realtime write failed", "client_id", client.ID, "err", err)
				return
			}
		}
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			h.log.Debug("realtime read ended", "client_id", client.ID, "err", err)
			return
		}
		var msg clientMessage
		if json.Unmarshal(raw, &msg) == nil && msg.Type == "ping" {
			h.SendToClient(client, clientMessage{Type: "pong"})
		}
	}
}
