package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	userID uuid.UUID
}

func (v stubValidator) ValidateToken(token string) (*TokenClaims, error) {
	if token != "good" {
		return nil, errors.New("invalid token")
	}
	return &TokenClaims{UserID: v.userID}, nil
}

func newAuthTestRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	identity := func(c *gin.Context) {
		if id, ok := UserID(c); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": id.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": nil})
	}
	router.GET("/required", AuthRequired(validator), identity)
	router.GET("/optional", AuthOptional(validator), identity)
	return router
}

func doAuthRequest(router *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	userID := uuid.New()
	router := newAuthTestRouter(stubValidator{userID: userID})

	w := doAuthRequest(router, "/required", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	for _, header := range []string{"", "Bearer bad", "NotBearer good", "good"} {
		w := doAuthRequest(router, "/required", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthOptional(t *testing.T) {
	userID := uuid.New()
	router := newAuthTestRouter(stubValidator{userID: userID})

	w := doAuthRequest(router, "/optional", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	// Anonymous and bad tokens both pass through without an identity.
	for _, header := range []string{"", "Bearer bad"} {
		w := doAuthRequest(router, "/optional", header)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "null")
	}
}
