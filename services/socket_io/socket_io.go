package socket_io

import (
	"Majiang/services/redis"
	"Majiang/services/rooms"
	"Majiang/services/socket_io/handlers"

	socketio_types "Majiang/services/socket_io/types"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// Start mounts the socket.io server on the router and wires every realtime
// event to its handler. The hub keeps per-session channel membership; the
// rooms service performs the actual lifecycle mutations.
func Start(router *gin.Engine, hub *socketio_types.SocketServer,
	service *rooms.Service, redisClient *redis.RedisClient) {
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	// NOTE: higher ping interval and timeout to 1) reduce network load and 2) support slower networks
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	hub.Sio_server = socket.NewServer(nil, nil)
	hub.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		// Check if the client is authenticated
		success, playerID := handlers.VerifyPlayerConnection(client)
		if !success {
			return
		}
		sessionID := string(client.Id())

		handlers.HandleConnect(hub, service, client, sessionID, playerID)

		// Subscribe to / unsubscribe from a room channel. Subscription is
		// allowed before the seat is confirmed.
		client.On("join_room", handlers.HandleJoinRoomChannel(hub, service, client, sessionID))
		client.On("leave_room", handlers.HandleLeaveRoomChannel(hub, client, sessionID))

		// Ready up or cancel readiness; may implicitly start the game
		client.On("set_ready", handlers.HandleSetReady(service, client, playerID))

		// Relay a chat line to everyone in the room
		client.On("room_message", handlers.HandleChatMessage(service, redisClient, client, playerID))

		// Cached room state lookup, served from Redis when possible
		client.On("get_room_state", handlers.HandleGetRoomState(service, redisClient, client))

		// External game engine signals the end of a round
		client.On("end_game", handlers.HandleEndGame(service, client, playerID))

		// NOTE: transport event only, the seat survives for reconnection
		client.On("disconnecting", handlers.HandleDisconnecting(hub, sessionID, playerID))
	})

	router.POST("/socket.io/*f", gin.WrapH(hub.Sio_server.ServeHandler(c)))
	router.GET("/socket.io/*f", gin.WrapH(hub.Sio_server.ServeHandler(c)))

	log.Println("Socket server started")
}

// Close shuts the socket.io server down.
func Close(hub *socketio_types.SocketServer) {
	if hub.Sio_server != nil {
		hub.Sio_server.Close(nil)
	}
}
