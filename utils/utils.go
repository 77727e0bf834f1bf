package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// Socket.io event payloads arrive as untyped argument lists. These helpers
// extract the common argument shapes and emit the client-facing error
// themselves, so handlers only deal with the happy path.

// RoomNumberArg extracts the room number (always the first argument of
// room-scoped events). Emits an error event and returns false on bad input.
func RoomNumberArg(client *socket.Socket, args []interface{}) (string, bool) {
	if len(args) < 1 {
		client.Emit("error", gin.H{"error": "missing room number"})
		return "", false
	}
	roomNumber, ok := args[0].(string)
	if !ok || roomNumber == "" {
		client.Emit("error", gin.H{"error": "room number must be a non-empty string"})
		return "", false
	}
	return roomNumber, true
}

// StringArg extracts a required string argument at the given position.
func StringArg(client *socket.Socket, args []interface{}, pos int, name string) (string, bool) {
	if len(args) <= pos {
		client.Emit("error", gin.H{"error": "missing " + name})
		return "", false
	}
	value, ok := args[pos].(string)
	if !ok {
		client.Emit("error", gin.H{"error": name + " must be a string"})
		return "", false
	}
	return value, true
}

// BoolArg extracts a required boolean argument at the given position.
func BoolArg(client *socket.Socket, args []interface{}, pos int, name string) (bool, bool) {
	if len(args) <= pos {
		client.Emit("error", gin.H{"error": "missing " + name})
		return false, false
	}
	value, ok := args[pos].(bool)
	if !ok {
		client.Emit("error", gin.H{"error": name + " must be a boolean"})
		return false, false
	}
	return value, true
}
