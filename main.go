package main

import (
	"Majiang/config"
	"Majiang/middleware"
	"Majiang/routes"
	"Majiang/services/redis"
	"Majiang/services/rooms"
	"Majiang/services/socket_io"
	socketio_types "Majiang/services/socket_io/types"
	"Majiang/sync"
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// @title Majiang API
// @version 1.0
// @description Gin-Gonic server managing mahjong game rooms, seats and realtime room events
// @BasePath /
// @paths
func main() {
	godotenv.Load()
	log.Println("Setting up server...")

	if os.Getenv("PROD") == "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := config.ConnectGORM()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %v", err)
	}
	log.Println("GORM Connected")

	// Only migrate in development or during deployment
	if os.Getenv("MIGRATE_POSTGRES") == "true" {
		log.Println("Migrating PostgreSQL database...")
		if err := config.MigrateDatabase(gormDB); err != nil {
			log.Printf("Warning: Database migration failed: %v", err)
			// Continue execution even if migration fails
		} else {
			log.Println("Database migrated successfully")
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Error reading GORM PostgreSQL instance: %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := config.Connect_redis()
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	log.Println("Connection to Redis successful")
	defer redis.CloseRedis(redisClient)

	// Drop cached room states that no longer have a backing row
	syncManager := sync.NewSyncManager(redisClient, sqlDB)
	if err := syncManager.ReconcileCache(); err != nil {
		log.Printf("Warning: cache reconciliation failed: %v", err)
	}

	store := rooms.NewGormStore(gormDB)
	registry := rooms.NewRegistry()
	hub := socketio_types.NewSocketServer()
	service := rooms.NewService(store, registry, hub, redisClient)

	r := gin.Default()

	middleware.SetUpMiddleware(r)

	routes.SetupRoutes(r, gormDB, service)

	socket_io.Start(r, hub, service, redisClient)
	defer socket_io.Close(hub)

	// Background expiry sweeps, stopped on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reapMinutes, _ := strconv.Atoi(os.Getenv("REAP_INTERVAL_MINUTES"))
	reaper := rooms.NewReaper(service, time.Duration(reapMinutes)*time.Minute)
	go reaper.Run(ctx)

	// Configure port
	port := os.Getenv("PORT")
	if port == "" && os.Getenv("USE_HTTPS") == "true" {
		port = "443"
	} else if port == "" {
		port = "8080"
	}

	if os.Getenv("USE_HTTPS") == "true" {
		// SSL certification configuration for HTTPS
		certFile := os.Getenv("TLS_CERT_FILE")
		keyFile := os.Getenv("TLS_KEY_FILE")

		// Start server
		if err := r.RunTLS(":"+port, certFile, keyFile); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	} else {
		if err := r.Run(":" + port); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}
}
