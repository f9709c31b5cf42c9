package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

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
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")
	{
		api.POST("/ingest", handler.Ingest)
		api.GET("/content", handler.ListContent)
		api.GET("/content/:id", handler.GetContent)
	}

	// Aggregated outbound feeds
	r.GET("/feed.xml", handler.GetFeedRSS)
	r.GET("/feed.atom", handler.GetFeedAtom)
	r.GET("/feed.json", handler.GetFeedJSON)

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Content Hub",
			"version":     handler.version,
			"description": "Articles, podcasts and videos aggregated into one paginated feed",
			"endpoints": map[string]string{
				"ingest":  "/api/ingest (POST)",
				"content": "/api/content?page=<n>&contentType=<article|video|podcast|all>&tag=<name>",
				"item":    "/api/content/<id>",
				"rss":     "/feed.xml",
				"atom":    "/feed.atom",
				"json":    "/feed.json",
				"health":  "/health",
				"stats":   "/stats",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
