package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShoppingListAggregation(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	shopper := createTestUser(t, db)
	tag := createTestTag(t, db, "baking2", "baking2")
	flour := createTestIngredient(t, db, "flour", "g")
	sugar := createTestIngredient(t, db, "sugar", "g")
	eggs := createTestIngredient(t, db, "eggs", "pcs")

	bread := createTestRecipe(t, svc, author.ID, "Bread", []uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: flour.ID, Amount: 200}, {ID: eggs.ID, Amount: 1}})
	cake := createTestRecipe(t, svc, author.ID, "Cake", []uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: flour.ID, Amount: 100}, {ID: sugar.ID, Amount: 150}})

	_, err := svc.AddToCart(ctx, shopper.ID, bread.ID)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, shopper.ID, cake.ID)
	require.NoError(t, err)

	items, err := svc.ShoppingList(ctx, shopper.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Shared ingredients are summed and groups come back by ascending
	// total.
	assert.Equal(t, ShoppingListItem{Name: "eggs", MeasurementUnit: "pcs", Total: 1}, items[0])
	assert.Equal(t, ShoppingListItem{Name: "sugar", MeasurementUnit: "g", Total: 150}, items[1])
	assert.Equal(t, ShoppingListItem{Name: "flour", MeasurementUnit: "g", Total: 300}, items[2])
}

func TestShoppingListEmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)

	shopper := createTestUser(t, db)

	_, err := svc.ShoppingList(context.Background(), shopper.ID)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "shopping_cart", vErr.Field)
}

func TestShoppingListScopedToUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	shopper := createTestUser(t, db)
	other := createTestUser(t, db)
	tag := createTestTag(t, db, "mexican", "mexican")
	beans := createTestIngredient(t, db, "beans", "g")
	corn := createTestIngredient(t, db, "corn", "g")

	chili := createTestRecipe(t, svc, author.ID, "Chili", []uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: beans.ID, Amount: 400}})
	tacos := createTestRecipe(t, svc, author.ID, "Tacos", []uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: corn.ID, Amount: 300}})

	_, err := svc.AddToCart(ctx, shopper.ID, chili.ID)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, other.ID, tacos.ID)
	require.NoError(t, err)

	items, err := svc.ShoppingList(ctx, shopper.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "beans", items[0].Name)
}

func TestRenderShoppingList(t *testing.T) {
	items := []ShoppingListItem{
		{Name: "eggs", MeasurementUnit: "pcs", Total: 2},
		{Name: "flour", MeasurementUnit: "g", Total: 300},
	}
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	text := RenderShoppingList(items, now)
	assert.Equal(t, "Shopping list (2024-03-15)\n\neggs - 2 pcs\nflour - 300 g\n", text)
}
