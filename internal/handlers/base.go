package handlers

import (
	"errors"
	"net/http"
	"uptree/internal/middleware"
	"uptree/internal/models"
	"uptree/internal/services"
	"uptree/internal/tree"

	"github.com/gin-gonic/gin"
)

// CurrentUser returns the session user loaded by middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	u, exists := c.Get(middleware.CheckUserKey)
	if !exists {
		return nil
	}
	return u.(*models.User)
}

// Fail writes a JSON error body.
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// FailPlacement maps placement and membership errors onto HTTP codes.
func FailPlacement(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tree.ErrParentNotFound):
		Fail(c, http.StatusNotFound, "parent not found")
	case errors.Is(err, tree.ErrInvalidPosition):
		Fail(c, http.StatusBadRequest, "position must be left or right")
	case errors.Is(err, tree.ErrTreeFull):
		Fail(c, http.StatusConflict, "no open slot in the tree")
	case errors.Is(err, tree.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "slot was taken concurrently", "retryable": true})
	case errors.Is(err, services.ErrUsernameTaken):
		Fail(c, http.StatusConflict, "username already taken")
	case errors.Is(err, services.ErrUnknownPlan):
		Fail(c, http.StatusBadRequest, "plan not found")
	default:
		Fail(c, http.StatusInternalServerError, err.Error())
	}
}
