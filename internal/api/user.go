package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/models"
	"github.com/platefeed/backend/internal/service"
)

type UserHandler struct {
	users    *service.UserService
	recipes  *service.RecipeService
	auth     *service.AuthService
	pageSize int
}

func NewUserHandler(users *service.UserService, recipes *service.RecipeService, auth *service.AuthService, pageSize int) *UserHandler {
	return &UserHandler{users: users, recipes: recipes, auth: auth, pageSize: pageSize}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Create)
		users.GET("", middleware.AuthOptional(h.auth), h.List)
		// "me" and "subscriptions" are dispatched inside Get because gin
		// cannot mix static and parameter segments at the same position.
		users.GET("/:id", middleware.AuthOptional(h.auth), h.Get)
		users.PATCH("/:id", middleware.AuthRequired(h.auth), h.Update)
		users.POST("/:id/subscribe", middleware.AuthRequired(h.auth), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.AuthRequired(h.auth), h.Unsubscribe)
	}
}

type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(*user, false))
}

func (h *UserHandler) List(c *gin.Context) {
	p := parsePageParams(c, h.pageSize)
	users, total, err := h.users.List(c.Request.Context(), p.offset(), p.limit)
	if err != nil {
		respondError(c, err)
		return
	}

	followSet := map[uuid.UUID]bool{}
	if actorID, ok := middleware.UserID(c); ok {
		ids := make([]uuid.UUID, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		followSet, err = h.users.FollowingSet(c.Request.Context(), actorID, ids)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	results := make([]UserResponse, len(users))
	for i, u := range users {
		results[i] = newUserResponse(u, followSet[u.ID])
	}
	c.JSON(http.StatusOK, newPagedResponse(c, total, p, results))
}

func (h *UserHandler) Get(c *gin.Context) {
	switch c.Param("id") {
	case "me":
		h.me(c)
		return
	case "subscriptions":
		h.Subscriptions(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	isSubscribed := false
	if actorID, ok := middleware.UserID(c); ok {
		isSubscribed, err = h.users.IsFollowing(c.Request.Context(), actorID, user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, newUserResponse(*user, isSubscribed))
}

func (h *UserHandler) me(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication credentials were not provided"})
		return
	}
	user, err := h.users.Get(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user, false))
}

type UpdateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Update modifies the calling user's own profile via PATCH /users/me.
func (h *UserHandler) Update(c *gin.Context) {
	if c.Param("id") != "me" {
		c.JSON(http.StatusForbidden, gin.H{"detail": "you do not have permission to perform this action"})
		return
	}
	actorID, _ := middleware.UserID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), actorID, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user, false))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}
	actorID, _ := middleware.UserID(c)

	if err := h.users.Follow(c.Request.Context(), actorID, authorID); err != nil {
		respondError(c, err)
		return
	}

	author, err := h.users.Get(c.Request.Context(), authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.subscriptionResponse(c, *author)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}
	actorID, _ := middleware.UserID(c)

	if err := h.users.Unfollow(c.Request.Context(), actorID, authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication credentials were not provided"})
		return
	}

	p := parsePageParams(c, h.pageSize)
	authors, total, err := h.users.Subscriptions(c.Request.Context(), actorID, p.offset(), p.limit)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SubscriptionResponse, len(authors))
	for i, author := range authors {
		resp, err := h.subscriptionResponse(c, author)
		if err != nil {
			respondError(c, err)
			return
		}
		results[i] = resp
	}
	c.JSON(http.StatusOK, newPagedResponse(c, total, p, results))
}

func (h *UserHandler) subscriptionResponse(c *gin.Context, author models.User) (SubscriptionResponse, error) {
	// recipes_limit is ignored unless it parses as a positive integer.
	limit := 0
	if raw := c.Query("recipes_limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	recipes, err := h.recipes.ByAuthor(c.Request.Context(), author.ID, limit)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	count, err := h.recipes.CountByAuthor(c.Request.Context(), author.ID)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	return newSubscriptionResponse(author, recipes, count), nil
}
