package routes

import (
	"Majiang/controllers"
	"Majiang/middleware"
	"Majiang/services/rooms"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, service *rooms.Service) {
	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes group
	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	// Guest identity
	api.POST("/players/login", controllers.GuestLogin(db))
	api.GET("/players/:player_id", controllers.GetPlayerPublicInfo(db))

	// Public room reads
	api.GET("/rooms", controllers.ListRooms(service))
	api.GET("/rooms/user/:player_id", controllers.GetUserRoom(service))
	api.GET("/rooms/:room_number", controllers.GetRoom(service))

	// Routes that require authentication
	authenticated := api.Group("/")
	authenticated.Use(middleware.AuthRequired)
	{
		authenticated.DELETE("/logout", controllers.Logout)

		authenticated.POST("/rooms", controllers.CreateRoom(service))
		authenticated.POST("/rooms/:room_number/join", controllers.JoinRoom(service))
		authenticated.POST("/rooms/:room_number/leave", controllers.LeaveRoom(service))
		authenticated.POST("/rooms/:room_number/ready", controllers.SetReady(service))
		authenticated.DELETE("/rooms/:room_number", controllers.CloseRoom(service))

		// Administrative trigger; the background reaper normally drives this
		authenticated.POST("/rooms/cleanup", controllers.CleanupRooms(service))
	}
}
