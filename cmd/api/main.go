package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/database"
	"github.com/platefeed/backend/internal/server"
	"github.com/platefeed/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Rate limiting is optional; without redis the API still serves.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = database.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
			rdb = nil
		}
	}

	var store service.ImageStore
	if cfg.S3Bucket != "" {
		store, err = service.NewS3Store(context.Background(), cfg.S3Bucket, cfg.AWSRegion)
	} else {
		store, err = service.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	}
	if err != nil {
		logger.Fatal("Failed to initialize image storage", zap.Error(err))
	}
	images := service.NewImageService(store)

	srv := server.New(cfg, db, rdb, images, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
