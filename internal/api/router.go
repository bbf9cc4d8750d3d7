package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mgh3326/rent-radar/internal/config"
	"github.com/mgh3326/rent-radar/internal/logger"
)

const readHeaderTimeout = 10 * time.Second

// Handlers bundles the route handlers for router setup.
type Handlers struct {
	Listings  *ListingsHandler
	Prices    *PricesHandler
	Favorites *FavoritesHandler
	Safety    *SafetyHandler
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(cfg config.ServerConfig, log logger.Logger, h Handlers) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/listings", h.Listings.Search)
		v1.GET("/listings/:id", h.Listings.Get)
		v1.GET("/listings/:id/compare", h.Listings.Compare)
		v1.GET("/listings/:id/prices", h.Prices.History)
		v1.GET("/listings/:id/safety", h.Safety.CheckListing)

		v1.GET("/safety/check", h.Safety.Check)

		v1.GET("/prices/changes", h.Prices.RecentDrops)
		v1.GET("/trades", h.Prices.Trades)
		v1.GET("/trades/trend", h.Prices.Trend)

		v1.GET("/favorites", h.Favorites.List)
		v1.POST("/favorites", h.Favorites.Add)
		v1.DELETE("/favorites/:id", h.Favorites.Remove)
	}

	return router
}

// loggingMiddleware logs each request with method, path, status, and latency.
func loggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.Debug("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(started)))
	}
}

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, log logger.Logger, h Handlers) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           SetupRouter(cfg, log, h),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		log: log,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting API server", logger.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("stopping API server")
	return s.httpServer.Shutdown(ctx)
}
