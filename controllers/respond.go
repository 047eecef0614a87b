package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minestapp/minest-backend/apperrors"
)

// respondError maps any error to the JSON envelope using its AppError
// status, falling back to 500 for unknown failures.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.JSON(appErr.Status, gin.H{"success": false, "error": appErr.Message})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}
