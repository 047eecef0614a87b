package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minestapp/minest-backend/dto"
	"github.com/minestapp/minest-backend/middleware"
	"github.com/minestapp/minest-backend/services"
)

// GET /profile/me
func GetProfile(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing auth context"})
			return
		}

		user, err := auth.GetProfile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

// PATCH /profile/update-profile
func UpdateProfile(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing auth context"})
			return
		}

		var req dto.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		user, err := auth.UpdateProfile(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}
