package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/adapters/embedding"
	"github.com/sufrahq/sufra-voice/adapters/mongo"
	"github.com/sufrahq/sufra-voice/adapters/realtime"
	"github.com/sufrahq/sufra-voice/internal/api"
	"github.com/sufrahq/sufra-voice/internal/websocket"
	"github.com/sufrahq/sufra-voice/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Storage
	mongoClient, err := mongo.Connect(context.Background(), mongo.ConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	restaurantRepo := mongo.NewRestaurantRepository(mongoClient.Database)
	cartRepo := mongo.NewCartRepository(mongoClient.Database)
	orderRepo := mongo.NewOrderRepository(mongoClient.Database)

	// Realtime credential issuing
	issuer, err := realtime.NewIssuer(realtime.IssuerConfig{
		APIKey: os.Getenv("REALTIME_API_KEY"),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to configure credential issuer", zap.Error(err))
	}

	// Semantic menu search
	embedder, err := embedding.NewGeminiEmbedder(logger)
	if err != nil {
		logger.Fatal("Failed to configure embedder", zap.Error(err))
	}
	menuSearch := embedding.NewMenuSearch(embedder, restaurantRepo, logger)

	// Usecase services
	menuService := usecase.NewMenuService(restaurantRepo, menuSearch, logger)
	orderingService := usecase.NewOrderingService(restaurantRepo, cartRepo, orderRepo, logger)

	// Restaurants are loaded once at startup; voice sessions need them in
	// memory to build instructions and resolve tool calls.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	restaurants, err := restaurantRepo.List(loadCtx)
	loadCancel()
	if err != nil {
		logger.Fatal("Failed to load restaurant catalog", zap.Error(err))
	}
	logger.Info("Restaurant catalog loaded", zap.Int("count", len(restaurants)))

	// WebSocket hub for device voice sessions
	hub := websocket.NewHub(issuer, restaurants, orderingService, logger)
	go hub.Run()

	clipCleanup := websocket.NewClipCleanupService(logger)
	clipCleanup.Start()
	defer clipCleanup.Stop()

	// Initialize API routes
	api.InitRoutes(e, hub, menuService, orderingService, issuer, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if err := mongoClient.Close(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Server exited")
}
