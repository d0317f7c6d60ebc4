package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/database"
	"github.com/platefeed/backend/internal/models"
	"github.com/platefeed/backend/internal/service"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		PageSize:  6,
	}

	store, err := service.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	router := gin.New()
	SetupAPI(router, db, nil, service.NewImageService(store), cfg)

	return &testEnv{
		router: router,
		db:     db,
		auth:   service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL),
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var (
	apiUserSeq int
	apiTagSeq  int
)

// createUser registers a user directly against the service layer and
// returns the model together with a valid token.
func (e *testEnv) createUser(t *testing.T) (models.User, string) {
	t.Helper()
	apiUserSeq++

	user, err := e.auth.Register(context.Background(), service.RegisterInput{
		Email:     fmt.Sprintf("user%d@example.com", apiUserSeq),
		Username:  fmt.Sprintf("user%d", apiUserSeq),
		FirstName: "Test",
		LastName:  "User",
		Password:  "password123",
	})
	require.NoError(t, err)

	token, err := e.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return *user, token
}

func (e *testEnv) createTag(t *testing.T, name, slug string) models.Tag {
	t.Helper()
	apiTagSeq++
	tag := models.Tag{Name: name, Color: fmt.Sprintf("#%06x", apiTagSeq), Slug: slug}
	require.NoError(t, e.db.Create(&tag).Error)
	return tag
}

func (e *testEnv) createIngredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, e.db.Create(&ingredient).Error)
	return ingredient
}

func testImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("test image bytes"))
}

// createRecipe posts a minimal valid recipe as the token's user and
// returns its id.
func (e *testEnv) createRecipe(t *testing.T, token, name string, tagIDs []uuid.UUID, ingredients []RecipeIngredientRequest) uuid.UUID {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/v1/recipes", token, RecipeRequest{
		Name:        name,
		Text:        "Instructions for " + name,
		CookingTime: 20,
		Image:       testImage(),
		Tags:        tagIDs,
		Ingredients: ingredients,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	id, err := uuid.Parse(body["id"].(string))
	require.NoError(t, err)
	return id
}
