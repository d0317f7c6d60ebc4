package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/service"
)

// SetupAPI wires all services and handlers under /api/v1. A nil redis
// client disables rate limiting.
func SetupAPI(router *gin.Engine, db *gorm.DB, rdb *redis.Client, images *service.ImageService, cfg *config.Config) {
	authSvc := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL)
	userSvc := service.NewUserService(db)
	recipeSvc := service.NewRecipeService(db)
	catalogSvc := service.NewCatalogService(db)

	var limiter *middleware.RateLimiter
	if rdb != nil {
		limiter = middleware.NewRecipeCreationRateLimiter(rdb)
	}

	v1 := router.Group("/api/v1")
	NewAuthHandler(authSvc).RegisterRoutes(v1)
	NewUserHandler(userSvc, recipeSvc, authSvc, cfg.PageSize).RegisterRoutes(v1)
	NewRecipeHandler(recipeSvc, userSvc, images, authSvc, limiter, cfg.PageSize).RegisterRoutes(v1)
	NewCatalogHandler(catalogSvc).RegisterRoutes(v1)
}
