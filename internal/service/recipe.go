package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/platefeed/backend/internal/models"
)

// RecipeService handles recipe CRUD, the favorite/cart toggles and the
// shopping-list aggregation.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// IngredientAmount is one requested ingredient line.
type IngredientAmount struct {
	ID     uuid.UUID
	Amount int
}

// RecipeInput carries the validated payload of a create or update request.
// ImageURL is resolved by the caller before the input reaches the service.
type RecipeInput struct {
	Name        string
	Text        string
	CookingTime int
	ImageURL    string
	TagIDs      []uuid.UUID
	Ingredients []IngredientAmount
}

func (in *RecipeInput) validate() error {
	if in.CookingTime < 1 {
		return &ValidationError{Field: "cooking_time", Message: "cooking time must be at least 1 minute"}
	}
	if len(in.TagIDs) == 0 {
		return &ValidationError{Field: "tags", Message: "at least one tag is required"}
	}
	seenTags := make(map[uuid.UUID]struct{}, len(in.TagIDs))
	for _, id := range in.TagIDs {
		if _, dup := seenTags[id]; dup {
			return &ValidationError{Field: "tags", Message: "tags must be unique"}
		}
		seenTags[id] = struct{}{}
	}
	if len(in.Ingredients) == 0 {
		return &ValidationError{Field: "ingredients", Message: "at least one ingredient is required"}
	}
	seenIngredients := make(map[uuid.UUID]struct{}, len(in.Ingredients))
	for _, line := range in.Ingredients {
		if _, dup := seenIngredients[line.ID]; dup {
			return &ValidationError{Field: "ingredients", Message: "ingredients must be unique"}
		}
		seenIngredients[line.ID] = struct{}{}
		if line.Amount < 1 {
			return &ValidationError{Field: "ingredients", Message: "amount must be at least 1"}
		}
	}
	return nil
}

// resolveRefs loads the referenced tags and ingredients, failing with
// ErrNotFound when any id does not exist.
func (s *RecipeService) resolveRefs(tx *gorm.DB, in *RecipeInput) ([]models.Tag, map[uuid.UUID]models.Ingredient, error) {
	var tags []models.Tag
	if err := tx.Where("id IN ?", in.TagIDs).Find(&tags).Error; err != nil {
		return nil, nil, err
	}
	if len(tags) != len(in.TagIDs) {
		return nil, nil, ErrNotFound
	}

	ids := make([]uuid.UUID, len(in.Ingredients))
	for i, line := range in.Ingredients {
		ids[i] = line.ID
	}
	var ingredients []models.Ingredient
	if err := tx.Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, nil, err
	}
	if len(ingredients) != len(in.Ingredients) {
		return nil, nil, ErrNotFound
	}
	byID := make(map[uuid.UUID]models.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		byID[ing.ID] = ing
	}
	return tags, byID, nil
}

// Create persists the recipe, its tag associations and its ingredient lines
// in one transaction; a failure leaves nothing behind.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var recipeID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, _, err := s.resolveRefs(tx, &in)
		if err != nil {
			return err
		}

		recipe := models.Recipe{
			Name:        in.Name,
			Text:        in.Text,
			CookingTime: in.CookingTime,
			ImageURL:    in.ImageURL,
			AuthorID:    authorID,
			Tags:        tags,
		}
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}

		lines := make([]models.RecipeIngredient, len(in.Ingredients))
		for i, line := range in.Ingredients {
			lines[i] = models.RecipeIngredient{
				RecipeID:     recipe.ID,
				IngredientID: line.ID,
				Amount:       line.Amount,
			}
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}

		recipeID = recipe.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipeID)
}

// Update replaces the recipe's fields, tags and ingredient lines. Matching
// lines are updated in place, new ones inserted, and stale ones deleted
// last so the unique (recipe, ingredient) index is never violated in
// between.
func (s *RecipeService) Update(ctx context.Context, recipeID, actorID uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if recipe.AuthorID != actorID {
		return nil, ErrForbidden
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, _, err := s.resolveRefs(tx, &in)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         in.Name,
			"text":         in.Text,
			"cooking_time": in.CookingTime,
		}
		if in.ImageURL != "" {
			updates["image_url"] = in.ImageURL
		}
		if err := tx.Model(&recipe).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}

		keep := make([]uuid.UUID, 0, len(in.Ingredients))
		for _, line := range in.Ingredients {
			var existing models.RecipeIngredient
			err := tx.Where("recipe_id = ? AND ingredient_id = ?", recipe.ID, line.ID).
				First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				existing = models.RecipeIngredient{
					RecipeID:     recipe.ID,
					IngredientID: line.ID,
					Amount:       line.Amount,
				}
				if err := tx.Create(&existing).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if err := tx.Model(&existing).Update("amount", line.Amount).Error; err != nil {
					return err
				}
			}
			keep = append(keep, existing.ID)
		}
		return tx.Where("recipe_id = ? AND id NOT IN ?", recipe.ID, keep).
			Delete(&models.RecipeIngredient{}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, recipeID)
}

// Delete removes the recipe and everything that references it.
func (s *RecipeService) Delete(ctx context.Context, recipeID, actorID uuid.UUID) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if recipe.AuthorID != actorID {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.ShoppingCartEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// RecipeFilter narrows the recipe listing. Tag slugs are OR'd within the
// group; distinct filters intersect.
type RecipeFilter struct {
	AuthorID    *uuid.UUID
	TagSlugs    []string
	FavoritedBy *uuid.UUID
	InCartOf    *uuid.UUID
	Offset      int
	Limit       int
}

func (s *RecipeService) List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if f.AuthorID != nil {
		q = q.Where("recipes.author_id = ?", *f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		q = q.Where("recipes.id IN (?)", s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs))
	}
	if f.FavoritedBy != nil {
		q = q.Where("recipes.id IN (?)", s.db.Table("favorites").
			Select("recipe_id").
			Where("user_id = ?", *f.FavoritedBy))
	}
	if f.InCartOf != nil {
		q = q.Where("recipes.id IN (?)", s.db.Table("shopping_cart_entries").
			Select("recipe_id").
			Where("user_id = ?", *f.InCartOf))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := q.Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.created_at DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// ByAuthor returns the author's recipes, newest first, optionally
// truncated.
func (s *RecipeService) ByAuthor(ctx context.Context, authorID uuid.UUID, limit int) ([]models.Recipe, error) {
	q := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *RecipeService) CountByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// Favorite marks the recipe as a favorite of the user. The insert races
// against concurrent duplicates and loses with a ConflictError; there is
// deliberately no exists pre-check.
func (s *RecipeService) Favorite(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.lookup(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	fav := models.Favorite{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&fav).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "recipe is already in favorites"}
		}
		return nil, err
	}
	return recipe, nil
}

func (s *RecipeService) Unfavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	if _, err := s.lookup(ctx, recipeID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddToCart and RemoveFromCart mirror the favorite toggle for the shopping
// cart.
func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.lookup(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	entry := models.ShoppingCartEntry{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Message: "recipe is already in the shopping cart"}
		}
		return nil, err
	}
	return recipe, nil
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	if _, err := s.lookup(ctx, recipeID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.ShoppingCartEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FavoritedSet reports which of the given recipes the user has favorited.
func (s *RecipeService) FavoritedSet(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return set, nil
	}
	var favs []models.Favorite
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Find(&favs).Error
	if err != nil {
		return nil, err
	}
	for _, f := range favs {
		set[f.RecipeID] = true
	}
	return set, nil
}

// InCartSet reports which of the given recipes are in the user's cart.
func (s *RecipeService) InCartSet(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return set, nil
	}
	var entries []models.ShoppingCartEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		set[e.RecipeID] = true
	}
	return set, nil
}

func (s *RecipeService) lookup(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}
