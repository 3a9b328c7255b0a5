package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"tiktokcontrol/api"
	"tiktokcontrol/config"
	"tiktokcontrol/farm"
	"tiktokcontrol/service"
	"tiktokcontrol/vision"

	"github.com/gin-gonic/gin"
)

// setupLogging creates a log file in the log directory with timestamp
// Returns the log file handle (caller should defer Close())
func setupLogging() (*os.File, error) {
	logDir := "log"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, timestamp+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Write to both console and file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("📝 Logging to: %s", logPath)
	return logFile, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Printf("Warning: Failed to setup file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting TikTok Control Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	store, err := config.OpenStore(cfg.StorePath)
	if err != nil {
		log.Fatal("Failed to open settings store:", err)
	}
	defer store.Close()

	// Initialize services
	farmClient := farm.NewClient(cfg.FarmBaseURL, cfg.FarmTimeout)
	visionClient := vision.NewClient(vision.Config{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		VisionModel:  cfg.OpenAIVisionModel,
		CommentModel: cfg.OpenAICommentModel,
		Timeout:      cfg.OpenAITimeout,
	})
	coordService := service.NewCoordinateService(service.DefaultMappings())
	commentResolver := service.NewCommentResolver(visionClient, nil)
	logHub := service.NewLogHub()
	engine := service.NewAutomationEngine(farmClient, visionClient, coordService, commentResolver, logHub, service.DefaultTiming())

	// Initialize WebSocket hub and bridge automation logs into it
	wsHub := api.NewWebSocketHub()
	go wsHub.Run()
	logHub.Subscribe(func(deviceID, message string) {
		wsHub.BroadcastLog(deviceID, message)
	})

	// Setup HTTP server
	router := gin.Default()
	api.SetupRoutes(router, farmClient, engine, coordService, logHub, store, wsHub)

	log.Printf("Server starting on http://localhost%s", cfg.ListenAddr)
	log.Printf("Device farm API: %s", cfg.FarmBaseURL)
	log.Printf("WebSocket log stream on ws://localhost%s/ws", cfg.ListenAddr)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
