package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/api"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/service"
)

// Server owns the HTTP listener and the routing tree.
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, images *service.ImageService, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Local image storage is served straight from disk; with S3 the URLs
	// point at the bucket instead.
	if cfg.S3Bucket == "" {
		router.Static(cfg.MediaBaseURL, cfg.MediaDir)
	}

	api.SetupAPI(router, db, rdb, images, cfg)

	return &Server{
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks serving requests until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
