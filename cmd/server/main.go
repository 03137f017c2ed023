package main

// @title           Rony Realtime Server API
// @version         1.0
// @description     Presence and realtime message fan-out for the Rony collaboration suite
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rony-server/internal/api/routes"
	"rony-server/internal/config"
	"rony-server/internal/database"
	"rony-server/internal/realtime"
	"rony-server/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real deployments inject env directly
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting rony server")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize MinIO object storage
	storage, err := database.NewMinIOClient(&cfg.Minio)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	// Wire the realtime core
	presenceRepo := repository.NewPresenceRepository(redisClient)
	convRepo := repository.NewConversationRepository(db)

	registry := realtime.NewRegistry()
	presence := realtime.NewPresence(presenceRepo)
	rtRouter := realtime.NewRouter(registry, convRepo)
	gateway := realtime.NewGateway(registry, presence, rtRouter)

	// Initialize router with all dependencies
	router := routes.NewRouter(cfg, db, presenceRepo, storage, gateway, presence, rtRouter)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close live WebSocket connections; each runs its normal cleanup path
	gateway.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
