package main

import (
	"Rally/config"
	"Rally/middleware"
	"Rally/routes"
	"Rally/services/chatroom"
	"Rally/services/coordinator"
	"Rally/services/notifications"
	"Rally/services/redis"
	"Rally/services/registry"
	"Rally/services/socket_io"
	"Rally/services/stream"
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// @title Rally API
// @version 1.0
// @description Gin-Gonic server for the Rally booking and chat API
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

	redisClient, err := config.ConnectRedis()
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redis.CloseRedis(redisClient)

	// Service wiring: the coordinator drives bookings and joins, the
	// manager owns chatroom lifecycle, the stream owns message delivery.
	conversations := registry.NewRegistry(gormDB)
	chatrooms := chatroom.NewManager(redisClient, conversations)
	msgStream := stream.NewStream(gormDB, redisClient)
	notifier := notifications.NewDispatcher(gormDB)
	coord := coordinator.NewCoordinator(gormDB, chatrooms, notifier)

	r := gin.Default()

	middleware.SetUpMiddleware(r)

	routes.SetupRoutes(r, gormDB, routes.Services{
		Coordinator: coord,
		Chatrooms:   chatrooms,
		Registry:    conversations,
		Stream:      msgStream,
		Notifier:    notifier,
	})

	sio := &socket_io.MySocketServer{}
	sio.Start(r, gormDB, redisClient, chatrooms, msgStream)
	defer sio.Close()

	// Periodically deactivate chatrooms whose game ended
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := chatrooms.SweepExpired(ctx, time.Now()); err != nil {
				log.Printf("Chatroom sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Chatroom sweep deactivated %d rooms", n)
			}
			cancel()
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
