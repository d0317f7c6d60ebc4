package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/models"
	"github.com/platefeed/backend/internal/service"
)

type RecipeHandler struct {
	recipes  *service.RecipeService
	users    *service.UserService
	images   *service.ImageService
	auth     *service.AuthService
	limiter  *middleware.RateLimiter
	pageSize int
}

func NewRecipeHandler(recipes *service.RecipeService, users *service.UserService, images *service.ImageService, auth *service.AuthService, limiter *middleware.RateLimiter, pageSize int) *RecipeHandler {
	return &RecipeHandler{
		recipes:  recipes,
		users:    users,
		images:   images,
		auth:     auth,
		limiter:  limiter,
		pageSize: pageSize,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.AuthOptional(h.auth), h.List)
		// download_shopping_cart is dispatched inside Get; gin cannot mix
		// static and parameter segments at the same position.
		recipes.GET("/:id", middleware.AuthOptional(h.auth), h.Get)

		create := []gin.HandlerFunc{middleware.AuthRequired(h.auth)}
		if h.limiter != nil {
			create = append(create, h.limiter.Middleware())
		}
		create = append(create, h.Create)
		recipes.POST("", create...)

		recipes.PUT("/:id", middleware.AuthRequired(h.auth), h.Update)
		recipes.PATCH("/:id", middleware.AuthRequired(h.auth), h.Update)
		recipes.DELETE("/:id", middleware.AuthRequired(h.auth), h.Delete)
		recipes.POST("/:id/favorite", middleware.AuthRequired(h.auth), h.Favorite)
		recipes.DELETE("/:id/favorite", middleware.AuthRequired(h.auth), h.Unfavorite)
		recipes.POST("/:id/shopping_cart", middleware.AuthRequired(h.auth), h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", middleware.AuthRequired(h.auth), h.RemoveFromCart)
	}
}

type RecipeIngredientRequest struct {
	ID     uuid.UUID `json:"id"`
	Amount int       `json:"amount"`
}

type RecipeRequest struct {
	Name        string                    `json:"name" binding:"required"`
	Text        string                    `json:"text" binding:"required"`
	CookingTime int                       `json:"cooking_time"`
	Image       string                    `json:"image"`
	Tags        []uuid.UUID               `json:"tags"`
	Ingredients []RecipeIngredientRequest `json:"ingredients"`
}

func (h *RecipeHandler) List(c *gin.Context) {
	p := parsePageParams(c, h.pageSize)
	filter := service.RecipeFilter{Offset: p.offset(), Limit: p.limit}

	if author := c.Query("author"); author != "" {
		id, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"author": []string{"invalid author id"}})
			return
		}
		filter.AuthorID = &id
	}
	filter.TagSlugs = c.QueryArray("tags")

	actorID, authenticated := middleware.UserID(c)
	// The membership filters only apply for authenticated callers.
	if authenticated {
		if isTruthy(c.Query("is_favorited")) {
			filter.FavoritedBy = &actorID
		}
		if isTruthy(c.Query("is_in_shopping_cart")) {
			filter.InCartOf = &actorID
		}
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.recipeResponses(c, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPagedResponse(c, total, p, results))
}

func (h *RecipeHandler) Get(c *gin.Context) {
	if c.Param("id") == "download_shopping_cart" {
		h.DownloadShoppingCart(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.recipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	actorID, _ := middleware.UserID(c)

	if req.Image == "" {
		respondError(c, &service.ValidationError{Field: "image", Message: "image is required"})
		return
	}
	imageURL, err := h.images.SaveBase64(c.Request.Context(), req.Image)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), actorID, h.toInput(req, imageURL))
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.recipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, results[0])
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	actorID, _ := middleware.UserID(c)

	// The image is optional on update; an absent field keeps the current
	// one.
	imageURL := ""
	if req.Image != "" {
		imageURL, err = h.images.SaveBase64(c.Request.Context(), req.Image)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	recipe, err := h.recipes.Update(c.Request.Context(), id, actorID, h.toInput(req, imageURL))
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.recipeResponses(c, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}
	actorID, _ := middleware.UserID(c)

	if err := h.recipes.Delete(c.Request.Context(), id, actorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) Favorite(c *gin.Context) {
	h.addToggle(c, h.recipes.Favorite)
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	h.removeToggle(c, h.recipes.Unfavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addToggle(c, h.recipes.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeToggle(c, h.recipes.RemoveFromCart)
}

func (h *RecipeHandler) addToggle(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}
	actorID, _ := middleware.UserID(c)

	recipe, err := add(c.Request.Context(), actorID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRecipeMiniResponse(*recipe))
}

func (h *RecipeHandler) removeToggle(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}
	actorID, _ := middleware.UserID(c)

	if err := remove(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication credentials were not provided"})
		return
	}

	items, err := h.recipes.ShoppingList(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	text := service.RenderShoppingList(items, time.Now())
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *RecipeHandler) toInput(req RecipeRequest, imageURL string) service.RecipeInput {
	lines := make([]service.IngredientAmount, len(req.Ingredients))
	for i, line := range req.Ingredients {
		lines[i] = service.IngredientAmount{ID: line.ID, Amount: line.Amount}
	}
	return service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		ImageURL:    imageURL,
		TagIDs:      req.Tags,
		Ingredients: lines,
	}
}

// recipeResponses serializes recipes with the computed flags resolved in
// bulk for the acting user.
func (h *RecipeHandler) recipeResponses(c *gin.Context, recipes []models.Recipe) ([]RecipeResponse, error) {
	favSet := map[uuid.UUID]bool{}
	cartSet := map[uuid.UUID]bool{}
	followSet := map[uuid.UUID]bool{}

	if actorID, ok := middleware.UserID(c); ok {
		recipeIDs := make([]uuid.UUID, len(recipes))
		authorIDs := make([]uuid.UUID, len(recipes))
		for i, r := range recipes {
			recipeIDs[i] = r.ID
			authorIDs[i] = r.AuthorID
		}

		var err error
		if favSet, err = h.recipes.FavoritedSet(c.Request.Context(), actorID, recipeIDs); err != nil {
			return nil, err
		}
		if cartSet, err = h.recipes.InCartSet(c.Request.Context(), actorID, recipeIDs); err != nil {
			return nil, err
		}
		if followSet, err = h.users.FollowingSet(c.Request.Context(), actorID, authorIDs); err != nil {
			return nil, err
		}
	}

	results := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		results[i] = newRecipeResponse(r, favSet[r.ID], cartSet[r.ID], followSet[r.AuthorID])
	}
	return results, nil
}

func isTruthy(v string) bool {
	return v == "1" || v == "true" || v == "True"
}
