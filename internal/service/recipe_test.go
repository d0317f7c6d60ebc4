package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platefeed/backend/internal/models"
)

func TestCreateRecipe(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)

	author := createTestUser(t, db)
	tag := createTestTag(t, db, "breakfast", "breakfast")
	flour := createTestIngredient(t, db, "flour", "g")
	milk := createTestIngredient(t, db, "milk", "ml")

	recipe := createTestRecipe(t, svc, author.ID, "Pancakes",
		[]uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: flour.ID, Amount: 200}, {ID: milk.ID, Amount: 300}},
	)

	assert.Equal(t, "Pancakes", recipe.Name)
	assert.Equal(t, author.ID, recipe.AuthorID)
	assert.Equal(t, author.Username, recipe.Author.Username)
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "breakfast", recipe.Tags[0].Slug)
	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, "flour", recipe.Ingredients[0].Ingredient.Name)
}

func TestCreateRecipeValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	tag := createTestTag(t, db, "dinner", "dinner")
	salt := createTestIngredient(t, db, "salt", "g")

	valid := RecipeInput{
		Name:        "Soup",
		Text:        "Boil water",
		CookingTime: 10,
		ImageURL:    "/media/soup.png",
		TagIDs:      []uuid.UUID{tag.ID},
		Ingredients: []IngredientAmount{{ID: salt.ID, Amount: 5}},
	}

	cases := []struct {
		name   string
		mutate func(in *RecipeInput)
		field  string
	}{
		{"zero cooking time", func(in *RecipeInput) { in.CookingTime = 0 }, "cooking_time"},
		{"no tags", func(in *RecipeInput) { in.TagIDs = nil }, "tags"},
		{"duplicate tags", func(in *RecipeInput) { in.TagIDs = []uuid.UUID{tag.ID, tag.ID} }, "tags"},
		{"no ingredients", func(in *RecipeInput) { in.Ingredients = nil }, "ingredients"},
		{"duplicate ingredients", func(in *RecipeInput) {
			in.Ingredients = []IngredientAmount{{ID: salt.ID, Amount: 5}, {ID: salt.ID, Amount: 6}}
		}, "ingredients"},
		{"zero amount", func(in *RecipeInput) {
			in.Ingredients = []IngredientAmount{{ID: salt.ID, Amount: 0}}
		}, "ingredients"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := svc.Create(ctx, author.ID, in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	// A failed create leaves no recipes behind.
	var count int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreateRecipeUnknownRefs(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	tag := createTestTag(t, db, "lunch", "lunch")
	salt := createTestIngredient(t, db, "salt", "g")

	_, err := svc.Create(ctx, author.ID, RecipeInput{
		Name: "X", Text: "Y", CookingTime: 5, ImageURL: "/media/x.png",
		TagIDs:      []uuid.UUID{uuid.New()},
		Ingredients: []IngredientAmount{{ID: salt.ID, Amount: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(ctx, author.ID, RecipeInput{
		Name: "X", Text: "Y", CookingTime: 5, ImageURL: "/media/x.png",
		TagIDs:      []uuid.UUID{tag.ID},
		Ingredients: []IngredientAmount{{ID: uuid.New(), Amount: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing was persisted by either attempt.
	var count int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUpdateRecipeReplacesLines(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	tag := createTestTag(t, db, "dessert", "dessert")
	other := createTestTag(t, db, "baking", "baking")
	flour := createTestIngredient(t, db, "flour", "g")
	sugar := createTestIngredient(t, db, "sugar", "g")
	eggs := createTestIngredient(t, db, "eggs", "pcs")

	recipe := createTestRecipe(t, svc, author.ID, "Cake",
		[]uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: flour.ID, Amount: 500}, {ID: sugar.ID, Amount: 200}},
	)

	updated, err := svc.Update(ctx, recipe.ID, author.ID, RecipeInput{
		Name:        "Better cake",
		Text:        "Mix and bake",
		CookingTime: 45,
		TagIDs:      []uuid.UUID{other.ID},
		Ingredients: []IngredientAmount{{ID: flour.ID, Amount: 400}, {ID: eggs.ID, Amount: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Better cake", updated.Name)
	assert.Equal(t, 45, updated.CookingTime)
	// Image was omitted, the old one stays.
	assert.Equal(t, recipe.ImageURL, updated.ImageURL)

	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "baking", updated.Tags[0].Slug)

	require.Len(t, updated.Ingredients, 2)
	amounts := map[string]int{}
	for _, line := range updated.Ingredients {
		amounts[line.Ingredient.Name] = line.Amount
	}
	assert.Equal(t, 400, amounts["flour"])
	assert.Equal(t, 3, amounts["eggs"])
	assert.NotContains(t, amounts, "sugar")

	// The sugar line is gone from the join table as well.
	var lineCount int64
	require.NoError(t, db.Model(&models.RecipeIngredient{}).
		Where("recipe_id = ?", recipe.ID).Count(&lineCount).Error)
	assert.EqualValues(t, 2, lineCount)
}

func TestUpdateRecipePermissions(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	intruder := createTestUser(t, db)
	tag := createTestTag(t, db, "grill", "grill")
	meat := createTestIngredient(t, db, "meat", "g")

	recipe := createTestRecipe(t, svc, author.ID, "Steak",
		[]uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: meat.ID, Amount: 300}},
	)

	in := RecipeInput{
		Name: "Hijacked", Text: "X", CookingTime: 1,
		TagIDs:      []uuid.UUID{tag.ID},
		Ingredients: []IngredientAmount{{ID: meat.ID, Amount: 1}},
	}

	_, err := svc.Update(ctx, recipe.ID, intruder.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, uuid.New(), author.ID, in)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(ctx, recipe.ID, intruder.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteRecipeCleansUp(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	fan := createTestUser(t, db)
	tag := createTestTag(t, db, "soup", "soup")
	water := createTestIngredient(t, db, "water", "ml")

	recipe := createTestRecipe(t, svc, author.ID, "Broth",
		[]uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: water.ID, Amount: 1000}},
	)

	_, err := svc.Favorite(ctx, fan.ID, recipe.ID)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, fan.ID, recipe.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, recipe.ID, author.ID))

	_, err = svc.Get(ctx, recipe.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, model := range []interface{}{
		&models.RecipeIngredient{}, &models.Favorite{}, &models.ShoppingCartEntry{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Where("recipe_id = ?", recipe.ID).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	}
}

func TestFavoriteToggle(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	fan := createTestUser(t, db)
	tag := createTestTag(t, db, "snack", "snack")
	nuts := createTestIngredient(t, db, "nuts", "g")

	recipe := createTestRecipe(t, svc, author.ID, "Trail mix",
		[]uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: nuts.ID, Amount: 100}},
	)

	mini, err := svc.Favorite(ctx, fan.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.ID, mini.ID)

	_, err = svc.Favorite(ctx, fan.ID, recipe.ID)
	var cErr *ConflictError
	assert.ErrorAs(t, err, &cErr)

	require.NoError(t, svc.Unfavorite(ctx, fan.ID, recipe.ID))
	assert.ErrorIs(t, svc.Unfavorite(ctx, fan.ID, recipe.ID), ErrNotFound)

	_, err = svc.Favorite(ctx, fan.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartToggle(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	shopper := createTestUser(t, db)
	tag := createTestTag(t, db, "dinner2", "dinner2")
	rice := createTestIngredient(t, db, "rice", "g")

	recipe := createTestRecipe(t, svc, author.ID, "Pilaf",
		[]uuid.UUID{tag.ID},
		[]IngredientAmount{{ID: rice.ID, Amount: 250}},
	)

	_, err := svc.AddToCart(ctx, shopper.ID, recipe.ID)
	require.NoError(t, err)

	_, err = svc.AddToCart(ctx, shopper.ID, recipe.ID)
	var cErr *ConflictError
	assert.ErrorAs(t, err, &cErr)

	require.NoError(t, svc.RemoveFromCart(ctx, shopper.ID, recipe.ID))
	assert.ErrorIs(t, svc.RemoveFromCart(ctx, shopper.ID, recipe.ID), ErrNotFound)
}

func TestListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	veg := createTestTag(t, db, "vegetarian", "vegetarian")
	quick := createTestTag(t, db, "quick", "quick")
	tomato := createTestIngredient(t, db, "tomato", "pcs")

	lines := []IngredientAmount{{ID: tomato.ID, Amount: 2}}
	salad := createTestRecipe(t, svc, alice.ID, "Salad", []uuid.UUID{veg.ID}, lines)
	pasta := createTestRecipe(t, svc, alice.ID, "Pasta", []uuid.UUID{veg.ID, quick.ID}, lines)
	createTestRecipe(t, svc, bob.ID, "Burger", []uuid.UUID{quick.ID}, lines)

	_, err := svc.Favorite(ctx, bob.ID, salad.ID)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, bob.ID, pasta.ID)
	require.NoError(t, err)

	t.Run("by author", func(t *testing.T) {
		recipes, total, err := svc.List(ctx, RecipeFilter{AuthorID: &alice.ID, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, recipes, 2)
	})

	t.Run("by tag slugs or", func(t *testing.T) {
		recipes, total, err := svc.List(ctx, RecipeFilter{TagSlugs: []string{"vegetarian", "quick"}, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, recipes, 3)

		_, total, err = svc.List(ctx, RecipeFilter{TagSlugs: []string{"quick"}, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("favorited", func(t *testing.T) {
		recipes, total, err := svc.List(ctx, RecipeFilter{FavoritedBy: &bob.ID, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, recipes, 1)
		assert.Equal(t, salad.ID, recipes[0].ID)
	})

	t.Run("in cart", func(t *testing.T) {
		recipes, total, err := svc.List(ctx, RecipeFilter{InCartOf: &bob.ID, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, recipes, 1)
		assert.Equal(t, pasta.ID, recipes[0].ID)
	})

	t.Run("intersection", func(t *testing.T) {
		_, total, err := svc.List(ctx, RecipeFilter{AuthorID: &bob.ID, TagSlugs: []string{"vegetarian"}, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)
	})

	t.Run("pagination counts all", func(t *testing.T) {
		recipes, total, err := svc.List(ctx, RecipeFilter{Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, recipes, 2)
	})
}

func TestFavoritedAndCartSets(t *testing.T) {
	db := newTestDB(t)
	svc := NewRecipeService(db)
	ctx := context.Background()

	author := createTestUser(t, db)
	user := createTestUser(t, db)
	tag := createTestTag(t, db, "misc", "misc")
	salt := createTestIngredient(t, db, "salt2", "g")

	lines := []IngredientAmount{{ID: salt.ID, Amount: 1}}
	a := createTestRecipe(t, svc, author.ID, "A", []uuid.UUID{tag.ID}, lines)
	b := createTestRecipe(t, svc, author.ID, "B", []uuid.UUID{tag.ID}, lines)

	_, err := svc.Favorite(ctx, user.ID, a.ID)
	require.NoError(t, err)

	set, err := svc.FavoritedSet(ctx, user.ID, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.True(t, set[a.ID])
	assert.False(t, set[b.ID])

	cart, err := svc.InCartSet(ctx, user.ID, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Empty(t, cart)
}
