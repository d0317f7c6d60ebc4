package database

import (
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/models"
)

// Migrate brings the schema up to date for all entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Favorite{},
		&models.ShoppingCartEntry{},
	)
}
