package api

import (
	"tiktokcontrol/config"
	"tiktokcontrol/farm"
	"tiktokcontrol/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, fc *farm.Client, engine *service.AutomationEngine, cs *service.CoordinateService, logs *service.LogHub, store *config.Store, wsHub *WebSocketHub) {
	// Enable CORS
	router.Use(CORSMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		devices := api.Group("/devices")
		{
			devices.GET("", func(c *gin.Context) { GetDevices(c, fc) })
			devices.POST("", func(c *gin.Context) { SetDevice(c, fc) })
			devices.DELETE("/:id", func(c *gin.Context) { DeleteDevice(c, fc) })
			devices.GET("/:id/screenshot", func(c *gin.Context) { GetScreenshot(c, fc) })
			devices.POST("/:id/input", func(c *gin.Context) { DeviceInput(c, fc) })
		}

		groups := api.Group("/groups")
		{
			groups.GET("", func(c *gin.Context) { GetGroups(c, fc) })
			groups.POST("", func(c *gin.Context) { SetGroup(c, fc) })
			groups.DELETE("/:id", func(c *gin.Context) { DeleteGroup(c, fc) })
		}

		coordinates := api.Group("/coordinates")
		{
			coordinates.GET("/mappings", func(c *gin.Context) { GetMappings(c, cs) })
			coordinates.GET("/:deviceId", func(c *gin.Context) { GetCoordinates(c, cs) })
			coordinates.PUT("/:deviceId", func(c *gin.Context) { SetCustomCoordinates(c, cs, store) })
			coordinates.DELETE("/:deviceId", func(c *gin.Context) { ClearCustomCoordinates(c, cs, store) })
		}

		automation := api.Group("/automation")
		{
			automation.GET("", func(c *gin.Context) { ListSessions(c, engine) })
			automation.POST("/:deviceId/start", func(c *gin.Context) { StartAutomation(c, engine, store) })
			automation.POST("/:deviceId/stop", func(c *gin.Context) { StopAutomation(c, engine) })
			automation.GET("/:deviceId", func(c *gin.Context) { GetSession(c, engine) })
			automation.GET("/:deviceId/logs", func(c *gin.Context) { GetDeviceLogs(c, logs) })
			automation.DELETE("/:deviceId/logs", func(c *gin.Context) { ClearDeviceLogs(c, logs) })
		}

		settings := api.Group("/settings")
		{
			settings.GET("/:key", func(c *gin.Context) { GetSetting(c, store) })
			settings.PUT("/:key", func(c *gin.Context) { PutSetting(c, store) })
		}
	}

	// WebSocket route
	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(wsHub, c)
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
