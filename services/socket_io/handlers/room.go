package handlers

import (
	redis_models "Majiang/models/redis"
	"Majiang/services/redis"
	"Majiang/services/rooms"
	socketio_types "Majiang/services/socket_io/types"
	"Majiang/utils"
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
)

// emitRoomError maps a lifecycle error onto the client error event, keeping
// the stable kind so the client can choose its UI treatment.
func emitRoomError(client *socket.Socket, err error) {
	client.Emit("error", gin.H{
		"kind":  string(rooms.KindOf(err)),
		"error": err.Error(),
	})
}

// HandleJoinRoomChannel subscribes the session to a room channel. The room
// must exist, but a seat is not required yet: clients may subscribe before
// their join is confirmed.
func HandleJoinRoomChannel(hub *socketio_types.SocketServer, service *rooms.Service,
	client *socket.Socket, sessionID string) func(args ...interface{}) {
	return func(args ...interface{}) {
		roomNumber, ok := utils.RoomNumberArg(client, args)
		if !ok {
			return
		}

		if _, err := service.GetRoom(context.Background(), roomNumber); err != nil {
			log.Printf("[CHANNEL-ERROR] Room lookup failed: room=%s, err=%v", roomNumber, err)
			emitRoomError(client, err)
			return
		}

		hub.JoinChannel(sessionID, roomNumber)
		log.Printf("[CHANNEL] Session subscribed: session=%s, room=%s", sessionID, roomNumber)
		client.Emit("joined_room", gin.H{"room_number": roomNumber})
	}
}

// HandleLeaveRoomChannel unsubscribes the session from a room channel.
func HandleLeaveRoomChannel(hub *socketio_types.SocketServer, client *socket.Socket,
	sessionID string) func(args ...interface{}) {
	return func(args ...interface{}) {
		roomNumber, ok := utils.RoomNumberArg(client, args)
		if !ok {
			return
		}

		hub.LeaveChannel(sessionID, roomNumber)
		log.Printf("[CHANNEL] Session unsubscribed: session=%s, room=%s", sessionID, roomNumber)
		client.Emit("left_room", gin.H{"room_number": roomNumber})
	}
}

// HandleSetReady flips the acting player's readiness. The implicit
// transition to PLAYING happens inside the service once everyone is ready.
func HandleSetReady(service *rooms.Service, client *socket.Socket,
	playerID string) func(args ...interface{}) {
	return func(args ...interface{}) {
		roomNumber, ok := utils.RoomNumberArg(client, args)
		if !ok {
			return
		}
		ready, ok := utils.BoolArg(client, args, 1, "ready flag")
		if !ok {
			return
		}

		snapshot, err := service.SetReady(context.Background(), roomNumber, playerID, ready)
		if err != nil {
			log.Printf("[READY-ERROR] SetReady failed: player=%s, room=%s, err=%v",
				playerID, roomNumber, err)
			emitRoomError(client, err)
			return
		}
		client.Emit("ready_confirmed", gin.H{
			"room_number": roomNumber,
			"ready":       ready,
			"room_status": snapshot.RoomStatus,
		})
	}
}

// HandleChatMessage relays a chat line to the room channel. Content is
// forwarded as-is; a copy goes to the capped Redis history for late joiners.
func HandleChatMessage(service *rooms.Service, redisClient *redis.RedisClient,
	client *socket.Socket, playerID string) func(args ...interface{}) {
	return func(args ...interface{}) {
		roomNumber, ok := utils.RoomNumberArg(client, args)
		if !ok {
			return
		}
		content, ok := utils.StringArg(client, args, 1, "message")
		if !ok {
			return
		}
		if content == "" {
			client.Emit("error", gin.H{"error": "message must be a non-empty string"})
			return
		}

		msg, err := service.PostChat(context.Background(), roomNumber, playerID, content)
		if err != nil {
			log.Printf("[CHAT-ERROR] PostChat failed: player=%s, room=%s, err=%v",
				playerID, roomNumber, err)
			emitRoomError(client, err)
			return
		}

		if redisClient != nil {
			err := redisClient.PushChatMessage(roomNumber, &redis_models.ChatMessage{
				PlayerID:   playerID,
				PlayerName: msg.PlayerName,
				Content:    content,
				Timestamp:  time.Now(),
			})
			if err != nil {
				log.Printf("[CHAT-ERROR] Error caching chat message: %v", err)
			}
		}
	}
}

// HandleGetRoomState answers with the cached room state when Redis has it,
// falling back to the store otherwise.
func HandleGetRoomState(service *rooms.Service, redisClient *redis.RedisClient,
	client *socket.Socket) func(args ...interface{}) {
	return func(args ...interface{}) {
		roomNumber, ok := utils.RoomNumberArg(client, args)
		if !ok {
			return
		}

		if redisClient != nil {
			state, err := redisClient.GetRoomState(roomNumber)
			if err != nil {
				log.Printf("[STATE-ERROR] Error reading cached room state: %v", err)
			} else if state != nil {
				client.Emit("room_state", state)
				return
			}
		}

		snapshot, err := service.GetRoom(context.Background(), roomNumber)
		if err != nil {
			emitRoomError(client, err)
			return
		}
		client.Emit("room_state", snapshot)
	}
}

// HandleEndGame is called by the external game engine when a round
// concludes: the room returns to WAITING and seats reset for the next round.
func HandleEndGame(service *rooms.Service, client *socket.Socket,
	playerID string) func(args ...interface{}) {
	return func(args ...interface{}) {
		roomNumber, ok := utils.RoomNumberArg(client, args)
		if !ok {
			return
		}

		snapshot, err := service.EndGame(context.Background(), roomNumber)
		if err != nil {
			log.Printf("[GAME-ERROR] EndGame failed: player=%s, room=%s, err=%v",
				playerID, roomNumber, err)
			emitRoomError(client, err)
			return
		}
		client.Emit("game_ended", gin.H{
			"room_number": roomNumber,
			"room_status": snapshot.RoomStatus,
		})
	}
}
