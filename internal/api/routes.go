package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/algostream/internal/algod"
	"github.com/rawblock/algostream/internal/db"
	"github.com/rawblock/algostream/internal/subscriber"
)

type APIHandler struct {
	sub         *subscriber.Subscriber
	algodClient *algod.Client
	dbStore     *db.PostgresStore
	wsHub       *Hub
}

func SetupRouter(sub *subscriber.Subscriber, algodClient *algod.Client, dbStore *db.PostgresStore, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var
	// Production: ALLOWED_ORIGINS=https://dashboard.example.com
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			// Check if the request origin is in the allowed list
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		sub:         sub,
		algodClient: algodClient,
		dbStore:     dbStore,
		wsHub:       wsHub,
	}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/progress", handler.handleProgress)
		pub.GET("/filters", handler.handleFilters)
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	// Rate-limit protected endpoints to 30 req/min per IP (burst=5);
	// the /node/status endpoint proxies straight to the node.
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.GET("/node/status", handler.handleNodeStatus)
		auth.POST("/stop", handler.handleStop)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.sub.Progress())
}

func (h *APIHandler) handleFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"filters": h.sub.FilterNames()})
}

func (h *APIHandler) handleNodeStatus(c *gin.Context) {
	if h.algodClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Node client unavailable"})
		return
	}
	status, err := h.algodClient.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *APIHandler) handleStop(c *gin.Context) {
	if !h.sub.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "Subscriber is not running"})
		return
	}
	h.sub.Stop("stop requested via API")
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}
