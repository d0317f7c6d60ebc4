package api

import (
	"github.com/google/uuid"

	"github.com/platefeed/backend/internal/models"
)

// Wire representations. Computed fields (is_subscribed, is_favorited,
// is_in_shopping_cart) are derived from the acting user passed in
// explicitly by the handler; anonymous callers always see false.

type UserResponse struct {
	Email        string    `json:"email"`
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
}

func newUserResponse(u models.User, isSubscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}

type TagResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Slug  string    `json:"slug"`
}

func newTagResponse(t models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

type IngredientResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
}

func newIngredientResponse(i models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// RecipeIngredientResponse is one ingredient line; its id is the
// ingredient's id, not the join row's.
type RecipeIngredientResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

type RecipeResponse struct {
	ID               uuid.UUID                  `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
}

func newRecipeResponse(r models.Recipe, favorited, inCart, authorFollowed bool) RecipeResponse {
	tags := make([]TagResponse, len(r.Tags))
	for i, t := range r.Tags {
		tags[i] = newTagResponse(t)
	}
	lines := make([]RecipeIngredientResponse, len(r.Ingredients))
	for i, line := range r.Ingredients {
		lines[i] = RecipeIngredientResponse{
			ID:              line.IngredientID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		}
	}
	return RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           newUserResponse(r.Author, authorFollowed),
		Ingredients:      lines,
		Name:             r.Name,
		Image:            r.ImageURL,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
	}
}

// RecipeMiniResponse is the short recipe form used by toggle responses and
// subscription listings.
type RecipeMiniResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

func newRecipeMiniResponse(r models.Recipe) RecipeMiniResponse {
	return RecipeMiniResponse{ID: r.ID, Name: r.Name, Image: r.ImageURL, CookingTime: r.CookingTime}
}

// SubscriptionResponse is a followed author annotated with a recipe count
// and an optionally truncated recipe list.
type SubscriptionResponse struct {
	Email        string               `json:"email"`
	ID           uuid.UUID            `json:"id"`
	Username     string               `json:"username"`
	FirstName    string               `json:"first_name"`
	LastName     string               `json:"last_name"`
	IsSubscribed bool                 `json:"is_subscribed"`
	Recipes      []RecipeMiniResponse `json:"recipes"`
	RecipesCount int64                `json:"recipes_count"`
}

func newSubscriptionResponse(author models.User, recipes []models.Recipe, count int64) SubscriptionResponse {
	minis := make([]RecipeMiniResponse, len(recipes))
	for i, r := range recipes {
		minis[i] = newRecipeMiniResponse(r)
	}
	return SubscriptionResponse{
		Email:        author.Email,
		ID:           author.ID,
		Username:     author.Username,
		FirstName:    author.FirstName,
		LastName:     author.LastName,
		IsSubscribed: true,
		Recipes:      minis,
		RecipesCount: count,
	}
}
