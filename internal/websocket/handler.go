package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a browser connection to sessionID and blocks until it closes.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID string) {
	client := newClient(hub, conn, sessionID)
	hub.register <- client
	hub.replay(client)

	go client.writePump()
	client.readPump()
}
