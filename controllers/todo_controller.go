package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/minestapp/minest-backend/dto"
	"github.com/minestapp/minest-backend/middleware"
	"github.com/minestapp/minest-backend/models"
	"github.com/minestapp/minest-backend/services"
	"github.com/minestapp/minest-backend/utils"
)

func parseListOptions(c *gin.Context) services.ListOptions {
	return services.ListOptions{
		Page:      utils.ParseIntDefault(c.Query("page"), 1),
		Limit:     utils.ParseIntDefault(c.Query("limit"), 0),
		SortBy:    strings.TrimSpace(c.Query("sortBy")),
		SortOrder: strings.TrimSpace(c.Query("sortOrder")),
		Search:    strings.TrimSpace(c.Query("search")),
	}
}

func parseDateQuery(c *gin.Context, name string) *time.Time {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func mustUserID(c *gin.Context) (bson.ObjectID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing auth context"})
	}
	return userID, ok
}

func respondPage(c *gin.Context, page *services.TodoPage) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       page.Todos,
		"pagination": page.Pagination,
	})
}

// POST /todos
func CreateTodo(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		var req dto.CreateTodoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		todo, err := todos.Create(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Todo created", "data": todo})
	}
}

// GET /todos
func GetTodos(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		page, err := todos.GetAll(c.Request.Context(), userID, parseListOptions(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondPage(c, page)
	}
}

// GET /todos/:id
func GetTodo(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		todo, err := todos.GetByID(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": todo})
	}
}

// PUT /todos/:id
func UpdateTodo(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		var req dto.UpdateTodoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		todo, err := todos.Update(c.Request.Context(), userID, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Todo updated", "data": todo})
	}
}

// DELETE /todos/:id
func DeleteTodo(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		if err := todos.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Todo deleted"})
	}
}

// GET /todos/status/:status
func GetTodosByStatus(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		status := models.TodoStatus(c.Param("status"))
		page, err := todos.GetByStatus(c.Request.Context(), userID, status, parseListOptions(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondPage(c, page)
	}
}

// GET /todos/priority/:priority
func GetTodosByPriority(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		priority := models.TodoPriority(c.Param("priority"))
		page, err := todos.GetByPriority(c.Request.Context(), userID, priority, parseListOptions(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondPage(c, page)
	}
}

// GET /todos/due-date
func GetTodosByDueDate(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		opts := services.DueDateOptions{
			ListOptions: parseListOptions(c),
			StartDate:   parseDateQuery(c, "startDate"),
			EndDate:     parseDateQuery(c, "endDate"),
			Overdue:     c.Query("overdue") == "true",
			Upcoming:    c.Query("upcoming") == "true",
		}

		page, err := todos.GetByDueDate(c.Request.Context(), userID, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		respondPage(c, page)
	}
}

// GET /todos/tag/:tag
func GetTodosByTag(todos *services.TodoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		page, err := todos.GetByTag(c.Request.Context(), userID, c.Param("tag"), parseListOptions(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondPage(c, page)
	}
}
