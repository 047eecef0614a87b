package dto

import "time"

type CreateTodoRequest struct {
	Title       string     `json:"title" binding:"required,max=100"`
	Description string     `json:"description" binding:"max=500"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Tags        []string   `json:"tags"`
}

// UpdateTodoRequest — all fields are optional pointers.
type UpdateTodoRequest struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,max=100"`
	Description *string    `json:"description,omitempty" binding:"omitempty,max=500"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    *string    `json:"priority,omitempty" binding:"omitempty,oneof=low medium high"`
	Status      *string    `json:"status,omitempty" binding:"omitempty,oneof=pending in-progress completed"`
	Tags        *[]string  `json:"tags,omitempty"`
}
