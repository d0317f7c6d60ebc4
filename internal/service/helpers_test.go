package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/platefeed/backend/internal/database"
	"github.com/platefeed/backend/internal/models"
)

// newTestDB opens a fresh in-memory sqlite database. A single connection
// keeps every query on the same in-memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

var (
	userSeq int
	tagSeq  int
)

func createTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	userSeq++
	user := models.User{
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		Username:     fmt.Sprintf("user%d", userSeq),
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestTag(t *testing.T, db *gorm.DB, name, slug string) models.Tag {
	t.Helper()
	tagSeq++
	tag := models.Tag{Name: name, Color: fmt.Sprintf("#%06x", tagSeq), Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

func createTestIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

func createTestRecipe(t *testing.T, svc *RecipeService, authorID uuid.UUID, name string, tagIDs []uuid.UUID, lines []IngredientAmount) *models.Recipe {
	t.Helper()
	recipe, err := svc.Create(context.Background(), authorID, RecipeInput{
		Name:        name,
		Text:        "Instructions for " + name,
		CookingTime: 30,
		ImageURL:    "/media/" + name + ".png",
		TagIDs:      tagIDs,
		Ingredients: lines,
	})
	require.NoError(t, err)
	return recipe
}
