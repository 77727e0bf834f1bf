package controllers

import (
	"Majiang/middleware"
	"Majiang/services/rooms"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// statusForKind maps the stable error kinds onto HTTP status codes.
func statusForKind(kind rooms.Kind) int {
	switch kind {
	case rooms.KindNotFound:
		return http.StatusNotFound
	case rooms.KindForbidden:
		return http.StatusForbidden
	case rooms.KindInvalidState, rooms.KindRoomFull, rooms.KindAlreadyMember:
		return http.StatusConflict
	case rooms.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortRoomError(c *gin.Context, err error) {
	kind := rooms.KindOf(err)
	if kind == rooms.KindInternal {
		log.Printf("[API-ERROR] Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(statusForKind(kind), gin.H{
		"kind":      string(kind),
		"error":     err.Error(),
		"retryable": rooms.Retryable(err),
	})
}

type createRoomRequest struct {
	RoomName     string `json:"room_name" binding:"required,max=50"`
	PlayerName   string `json:"player_name" binding:"required,max=20"`
	Avatar       string `json:"avatar"`
	MaxPlayers   int    `json:"max_players"`
	Password     string `json:"password"`
	GameConfigID uint   `json:"game_config_id"`
}

// @Summary Creates a new room
// @Description Creates a room in WAITING state with the caller seated at position 1
// @Tags rooms
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param request body createRoomRequest true "Room creation parameters"
// @Success 200 {object} models.RoomSnapshot
// @Failure 400 {object} object{error=string}
// @Failure 503 {object} object{error=string,kind=string,retryable=bool}
// @Security ApiKeyAuth
// @Router /rooms [post]
func CreateRoom(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, err := middleware.JWT_decoder(c)
		if err != nil {
			return
		}

		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		snapshot, err := service.CreateRoom(c.Request.Context(), rooms.CreateRoomParams{
			RoomName:      req.RoomName,
			CreatorID:     playerID,
			CreatorName:   req.PlayerName,
			CreatorAvatar: req.Avatar,
			MaxPlayers:    req.MaxPlayers,
			Password:      req.Password,
			GameConfigID:  req.GameConfigID,
		})
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

type joinRoomRequest struct {
	PlayerName  string `json:"player_name" binding:"required,max=20"`
	Avatar      string `json:"avatar"`
	Password    string `json:"password"`
	AsSpectator bool   `json:"as_spectator"`
}

// @Summary Joins a room
// @Description Seats the caller in the room, or registers them as a spectator
// @Tags rooms
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param room_number path string true "Room number"
// @Param request body joinRoomRequest true "Join parameters"
// @Success 200 {object} models.RoomSnapshot
// @Failure 404 {object} object{error=string,kind=string}
// @Failure 409 {object} object{error=string,kind=string}
// @Security ApiKeyAuth
// @Router /rooms/{room_number}/join [post]
func JoinRoom(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, err := middleware.JWT_decoder(c)
		if err != nil {
			return
		}

		var req joinRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		snapshot, err := service.JoinRoom(c.Request.Context(), rooms.JoinRoomParams{
			RoomNumber:   c.Param("room_number"),
			PlayerID:     playerID,
			PlayerName:   req.PlayerName,
			PlayerAvatar: req.Avatar,
			Password:     req.Password,
			AsSpectator:  req.AsSpectator,
		})
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Leaves a room
// @Description Removes the caller's seat; forbidden for players mid-game
// @Tags rooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param room_number path string true "Room number"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} object{error=string,kind=string}
// @Failure 409 {object} object{error=string,kind=string}
// @Security ApiKeyAuth
// @Router /rooms/{room_number}/leave [post]
func LeaveRoom(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, err := middleware.JWT_decoder(c)
		if err != nil {
			return
		}

		if err := service.LeaveRoom(c.Request.Context(), c.Param("room_number"), playerID); err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "left room successfully"})
	}
}

type setReadyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

// @Summary Sets the caller's readiness
// @Description Marks the caller ready or not ready; when every player is ready the game starts
// @Tags rooms
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param room_number path string true "Room number"
// @Param request body setReadyRequest true "Ready flag"
// @Success 200 {object} models.RoomSnapshot
// @Failure 404 {object} object{error=string,kind=string}
// @Failure 409 {object} object{error=string,kind=string}
// @Security ApiKeyAuth
// @Router /rooms/{room_number}/ready [post]
func SetReady(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, err := middleware.JWT_decoder(c)
		if err != nil {
			return
		}

		var req setReadyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		snapshot, err := service.SetReady(c.Request.Context(), c.Param("room_number"), playerID, *req.Ready)
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Gives info of a room
// @Description Given a room number, it will return the full room snapshot
// @Tags rooms
// @Produce json
// @Param room_number path string true "Room number"
// @Success 200 {object} models.RoomSnapshot
// @Failure 404 {object} object{error=string,kind=string}
// @Router /rooms/{room_number} [get]
func GetRoom(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := service.GetRoom(c.Request.Context(), c.Param("room_number"))
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Lists rooms
// @Description Returns rooms matching the optional status/public filters, newest first
// @Tags rooms
// @Produce json
// @Param status query string false "Room status filter (WAITING, PLAYING, FINISHED)"
// @Param public_only query bool false "Only rooms without password"
// @Param page query int false "Page, 1-based" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {array} models.RoomSnapshot
// @Router /rooms [get]
func ListRooms(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
		publicOnly := c.Query("public_only") == "true"

		snapshots, err := service.ListRooms(c.Request.Context(), rooms.RoomFilter{
			Status:     c.Query("status"),
			PublicOnly: publicOnly,
			Page:       page,
			Size:       size,
		})
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshots)
	}
}

// @Summary Gives the room a player is seated in
// @Description Returns the room snapshot for the room holding the player's seat
// @Tags rooms
// @Produce json
// @Param player_id path string true "Player id"
// @Success 200 {object} models.RoomSnapshot
// @Failure 404 {object} object{error=string,kind=string}
// @Router /rooms/user/{player_id} [get]
func GetUserRoom(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := service.GetPlayerRoom(c.Request.Context(), c.Param("player_id"))
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// @Summary Closes a room
// @Description Tears the room down and removes every seat; only the creator may do this
// @Tags rooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param room_number path string true "Room number"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} object{error=string,kind=string}
// @Failure 404 {object} object{error=string,kind=string}
// @Failure 409 {object} object{error=string,kind=string}
// @Security ApiKeyAuth
// @Router /rooms/{room_number} [delete]
func CloseRoom(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, err := middleware.JWT_decoder(c)
		if err != nil {
			return
		}

		if err := service.CloseRoom(c.Request.Context(), c.Param("room_number"), playerID); err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "room closed"})
	}
}

// @Summary Cleans up expired rooms
// @Description Administrative trigger for the expiry sweep; normally the background reaper drives this
// @Tags rooms
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} object{reaped=int}
// @Security ApiKeyAuth
// @Router /rooms/cleanup [post]
func CleanupRooms(service *rooms.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := middleware.JWT_decoder(c); err != nil {
			return
		}

		reaped, err := service.CleanupExpiredRooms(c.Request.Context())
		if err != nil {
			abortRoomError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reaped": reaped})
	}
}
