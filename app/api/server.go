package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/favicon.ico"},
	}))

	r.Use(gin.Recovery())

	// CORS for API clients, preflight answered here
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Health endpoint, always public
	r.GET("/health", handler.GetHealth)

	// API endpoints (enabled only with an access key)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			// Provider queries
			api.GET("/videos", handler.SearchVideos)
			api.GET("/videos/:origin/:id", handler.GetVideo)
			api.GET("/providers/:origin/access", handler.CheckAccess)
			api.GET("/feeds", handler.ListFeeds)

			// Synchronization runs
			api.POST("/sources/:origin/:action", handler.StartRun)
			api.GET("/runs", handler.ListRuns)
			api.GET("/runs/:id", handler.GetRun)
			api.GET("/runs/:id/events", handler.StreamRun)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with service information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
		}

		if apiAccessKey != "" {
			endpoints["search"] = "/api/videos?title=<title>"
			endpoints["video"] = "/api/videos/<origin>/<id>"
			endpoints["access"] = "/api/providers/<origin>/access"
			endpoints["feeds"] = "/api/feeds"
			endpoints["runs"] = "/api/sources/<origin>/{create,update,clean} (POST)"
			endpoints["events"] = "/api/runs/<id>/events"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Video Comb",
			"description": "Video catalog feed synchronization",
			"endpoints":   endpoints,
			"api_status": gin.H{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (204 instead of 404)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware checks the API key for /api routes
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Fall back to Authorization: Bearer <key>
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}
