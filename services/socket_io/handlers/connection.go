package handlers

import (
	"Majiang/middleware"
	"Majiang/services/rooms"
	socketio_types "Majiang/services/socket_io/types"
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// VerifyPlayerConnection authenticates a socket.io client from its handshake
// auth payload and returns the acting player id.
func VerifyPlayerConnection(client *socket.Socket) (success bool, playerID string) {
	authData, ok := client.Handshake().Auth.(map[string]interface{})
	if !ok {
		log.Println("[CONNECT-ERROR] No auth data provided in handshake")
		client.Emit("error", gin.H{"error": "Authentication failed: missing auth data"})
		return false, ""
	}

	playerID, err := middleware.Socketio_JWT_decoder(authData)
	if err != nil {
		log.Printf("[CONNECT-ERROR] Error decoding JWT: %v", err)
		client.Emit("error", gin.H{
			"error": "Authentication failed: invalid JWT. Remember to set it on the 'authorization' field with the 'Bearer ' prefix.",
		})
		return false, ""
	}
	return true, playerID
}

// HandleConnect registers the session with the hub. If the player already
// holds a seat somewhere, the session is auto-subscribed to that room's
// channel so a reconnecting client picks up events immediately, and the
// acknowledgement goes to this session alone.
func HandleConnect(hub *socketio_types.SocketServer, service *rooms.Service,
	client *socket.Socket, sessionID, playerID string) {
	log.Printf("[CONNECT] Session connected: session=%s, player=%s", sessionID, playerID)
	hub.Connect(sessionID, playerID, client)

	currentRoom := ""
	if snapshot, err := service.GetPlayerRoom(context.Background(), playerID); err == nil {
		hub.JoinChannel(sessionID, snapshot.RoomNumber)
		currentRoom = snapshot.RoomNumber
		log.Printf("[CONNECT] Session resubscribed to room channel: session=%s, room=%s",
			sessionID, snapshot.RoomNumber)
	}

	client.Emit("connect_success", gin.H{
		"player_id":   playerID,
		"room_number": currentRoom,
		"message":     "connection established",
	})
}

// HandleDisconnecting removes the session from every channel it joined. The
// seat is deliberately left untouched: disconnection is a transport event,
// not a leave, so the player can reconnect into the same seat.
func HandleDisconnecting(hub *socketio_types.SocketServer, sessionID, playerID string) func(args ...interface{}) {
	return func(args ...interface{}) {
		log.Printf("[DISCONNECT] Session disconnecting: session=%s, player=%s", sessionID, playerID)
		hub.Disconnect(sessionID)
	}
}
