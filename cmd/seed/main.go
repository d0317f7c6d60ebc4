package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/database"
	"github.com/platefeed/backend/internal/models"
)

// seed loads reference data (tags and ingredients) from JSON files into
// the database. Existing rows are left untouched.

type ingredientRow struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagRow struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

func main() {
	ingredientsPath := flag.String("ingredients", "", "Path to an ingredients JSON file")
	tagsPath := flag.String("tags", "", "Path to a tags JSON file")
	flag.Parse()

	if *ingredientsPath == "" && *tagsPath == "" {
		log.Fatal("Nothing to do: pass -ingredients and/or -tags")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if *tagsPath != "" {
		n, err := seedTags(db, *tagsPath)
		if err != nil {
			log.Fatalf("Failed to seed tags: %v", err)
		}
		log.Printf("Seeded %d tags", n)
	}

	if *ingredientsPath != "" {
		n, err := seedIngredients(db, *ingredientsPath)
		if err != nil {
			log.Fatalf("Failed to seed ingredients: %v", err)
		}
		log.Printf("Seeded %d ingredients", n)
	}
}

func seedTags(db *gorm.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var rows []tagRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, err
	}

	count := 0
	for _, row := range rows {
		tag := models.Tag{Name: row.Name, Color: row.Color, Slug: row.Slug}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag)
		if result.Error != nil {
			return count, result.Error
		}
		count += int(result.RowsAffected)
	}
	return count, nil
}

func seedIngredients(db *gorm.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var rows []ingredientRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, err
	}

	ingredients := make([]models.Ingredient, len(rows))
	for i, row := range rows {
		ingredients[i] = models.Ingredient{Name: row.Name, MeasurementUnit: row.MeasurementUnit}
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(ingredients, 500)
	return int(result.RowsAffected), result.Error
}
