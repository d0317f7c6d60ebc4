package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platefeed/backend/internal/service"
)

// respondError maps service errors onto the HTTP surface. Validation and
// conflict errors are both 400; only the body shape differs.
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var conflictErr *service.ConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{validationErr.Field: []string{validationErr.Message}})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": conflictErr.Message})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"errors": "unable to log in with provided credentials"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": "you do not have permission to perform this action"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
