package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platefeed/backend/internal/models"
)

// ShoppingListItem is one aggregated ingredient group.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	Total           int
}

// ShoppingList aggregates the ingredient lines of every recipe in the
// user's cart, grouped by (name, unit) and ordered by ascending summed
// amount. An empty cart is a validation error, not an empty report.
func (s *RecipeService) ShoppingList(ctx context.Context, userID uuid.UUID) ([]ShoppingListItem, error) {
	var cartSize int64
	err := s.db.WithContext(ctx).Model(&models.ShoppingCartEntry{}).
		Where("user_id = ?", userID).Count(&cartSize).Error
	if err != nil {
		return nil, err
	}
	if cartSize == 0 {
		return nil, &ValidationError{Field: "shopping_cart", Message: "shopping cart is empty"}
	}

	var items []ShoppingListItem
	err = s.db.WithContext(ctx).
		Table("shopping_cart_entries").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total").
		Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = shopping_cart_entries.recipe_id").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Where("shopping_cart_entries.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("total ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RenderShoppingList formats the aggregated groups as the plain-text
// download document.
func RenderShoppingList(items []ShoppingListItem, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping list (%s)\n\n", now.Format("2006-01-02"))
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d %s\n", item.Name, item.Total, item.MeasurementUnit)
	}
	return b.String()
}
