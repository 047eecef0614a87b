package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/minestapp/minest-backend/apperrors"
	"github.com/minestapp/minest-backend/dto"
	"github.com/minestapp/minest-backend/models"
	"github.com/minestapp/minest-backend/store"
	"github.com/minestapp/minest-backend/utils"
)

// ListOptions control pagination, sorting and free-text search over a
// user's todos.
type ListOptions struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string // "asc" or "desc"
	Search    string
}

// DueDateOptions narrow a listing to a due-date window. Overdue and
// Upcoming are mutually exclusive shortcuts that take precedence over the
// explicit range.
type DueDateOptions struct {
	ListOptions
	StartDate *time.Time
	EndDate   *time.Time
	Overdue   bool
	Upcoming  bool
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
	TotalItems int64 `json:"totalItems"`
}

type TodoPage struct {
	Todos      []models.Todo `json:"todos"`
	Pagination Pagination    `json:"pagination"`
}

var sortableFields = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"dueDate":   true,
	"title":     true,
	"priority":  true,
	"status":    true,
}

// TodoService implements CRUD plus the filtered listings over per-user
// todos. Every query is scoped by owner id.
type TodoService struct {
	todos        store.TodoStore
	defaultLimit int
	maxLimit     int
	lg           zerolog.Logger
}

func NewTodoService(todos store.TodoStore, defaultLimit, maxLimit int, lg zerolog.Logger) *TodoService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &TodoService{
		todos:        todos,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		lg:           lg.With().Str("component", "todo_service").Logger(),
	}
}

// normalize clamps paging values and validates the sort field.
func (s *TodoService) normalize(opts ListOptions) ListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = s.defaultLimit
	}
	if opts.Limit > s.maxLimit {
		opts.Limit = s.maxLimit
	}
	if !sortableFields[opts.SortBy] {
		opts.SortBy = "createdAt"
	}
	if opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		opts.SortOrder = "desc"
	}
	return opts
}

func sortDoc(field, order string) bson.D {
	dir := -1
	if order == "asc" {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}}
}

// searchClauses builds the case-insensitive $or over title, description and
// tags used by free-text search. User input is regex-escaped.
func searchClauses(search string) bson.A {
	quoted := utils.EscapeRegex(search)
	return bson.A{
		bson.M{"title": bson.M{"$regex": quoted, "$options": "i"}},
		bson.M{"description": bson.M{"$regex": quoted, "$options": "i"}},
		bson.M{"tags": bson.M{"$regex": quoted, "$options": "i"}},
	}
}

func (s *TodoService) page(ctx context.Context, filter bson.M, sort bson.D, opts ListOptions) (*TodoPage, error) {
	skip := int64((opts.Page - 1) * opts.Limit)
	todos, total, err := s.todos.FindPage(ctx, filter, sort, skip, int64(opts.Limit))
	if err != nil {
		return nil, apperrors.NewInternal("failed to list todos", err)
	}
	if todos == nil {
		// Empty pages serialize as [] rather than null.
		todos = []models.Todo{}
	}

	totalPages := total / int64(opts.Limit)
	if total%int64(opts.Limit) != 0 {
		totalPages++
	}

	return &TodoPage{
		Todos: todos,
		Pagination: Pagination{
			Page:       opts.Page,
			Limit:      opts.Limit,
			TotalPages: totalPages,
			TotalItems: total,
		},
	}, nil
}

func (s *TodoService) Create(ctx context.Context, userID bson.ObjectID, req dto.CreateTodoRequest) (*models.Todo, error) {
	priority := models.TodoPriority(req.Priority)
	if req.Priority == "" {
		priority = models.PriorityMedium
	}
	status := models.TodoStatus(req.Status)
	if req.Status == "" {
		status = models.StatusPending
	}

	now := time.Now().UTC()
	todo := &models.Todo{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    priority,
		Status:      status,
		Tags:        utils.NormalizeTags(req.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, apperrors.NewInternal("failed to create todo", err)
	}
	return todo, nil
}

func (s *TodoService) GetAll(ctx context.Context, userID bson.ObjectID, opts ListOptions) (*TodoPage, error) {
	opts = s.normalize(opts)

	filter := bson.M{"user": userID}
	if opts.Search != "" {
		filter["$or"] = searchClauses(opts.Search)
	}
	return s.page(ctx, filter, sortDoc(opts.SortBy, opts.SortOrder), opts)
}

func (s *TodoService) GetByID(ctx context.Context, userID bson.ObjectID, todoID string) (*models.Todo, error) {
	id, err := bson.ObjectIDFromHex(todoID)
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid todo ID")
	}

	todo, err := s.todos.FindOne(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewNotFound("Todo not found")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to load todo", err)
	}
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, userID bson.ObjectID, todoID string, req dto.UpdateTodoRequest) (*models.Todo, error) {
	id, err := bson.ObjectIDFromHex(todoID)
	if err != nil {
		return nil, apperrors.NewBadRequest("Invalid todo ID")
	}

	set := bson.M{}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.DueDate != nil {
		set["dueDate"] = *req.DueDate
	}
	if req.Priority != nil {
		set["priority"] = models.TodoPriority(*req.Priority)
	}
	if req.Status != nil {
		set["status"] = models.TodoStatus(*req.Status)
	}
	if req.Tags != nil {
		set["tags"] = utils.NormalizeTags(*req.Tags)
	}
	if len(set) == 0 {
		return nil, apperrors.NewBadRequest("No updates provided")
	}

	todo, err := s.todos.UpdateOne(ctx, userID, id, set)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewNotFound("Todo not found")
	}
	if err != nil {
		return nil, apperrors.NewInternal("failed to update todo", err)
	}
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, userID bson.ObjectID, todoID string) error {
	id, err := bson.ObjectIDFromHex(todoID)
	if err != nil {
		return apperrors.NewBadRequest("Invalid todo ID")
	}

	err = s.todos.DeleteOne(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFound("Todo not found")
	}
	if err != nil {
		return apperrors.NewInternal("failed to delete todo", err)
	}
	return nil
}

func (s *TodoService) GetByStatus(ctx context.Context, userID bson.ObjectID, status models.TodoStatus, opts ListOptions) (*TodoPage, error) {
	if !status.Valid() {
		return nil, apperrors.NewBadRequest("Invalid todo status")
	}
	opts = s.normalize(opts)

	filter := bson.M{"user": userID, "status": status}
	if opts.Search != "" {
		filter["$or"] = searchClauses(opts.Search)
	}
	return s.page(ctx, filter, sortDoc(opts.SortBy, opts.SortOrder), opts)
}

func (s *TodoService) GetByPriority(ctx context.Context, userID bson.ObjectID, priority models.TodoPriority, opts ListOptions) (*TodoPage, error) {
	if !priority.Valid() {
		return nil, apperrors.NewBadRequest("Invalid todo priority")
	}
	opts = s.normalize(opts)

	filter := bson.M{"user": userID, "priority": priority}
	if opts.Search != "" {
		filter["$or"] = searchClauses(opts.Search)
	}
	return s.page(ctx, filter, sortDoc(opts.SortBy, opts.SortOrder), opts)
}

// GetByDueDate lists todos inside a due-date window, sorted by due date.
// Todos without a due date never match.
func (s *TodoService) GetByDueDate(ctx context.Context, userID bson.ObjectID, opts DueDateOptions) (*TodoPage, error) {
	if opts.SortOrder == "" {
		opts.SortOrder = "asc"
	}
	opts.ListOptions = s.normalize(opts.ListOptions)

	filter := bson.M{"user": userID}

	due := bson.M{"$ne": nil}
	switch {
	case opts.Overdue:
		due = bson.M{"$lt": time.Now().UTC(), "$ne": nil}
	case opts.Upcoming:
		now := time.Now().UTC()
		due = bson.M{"$gte": now, "$lte": now.AddDate(0, 0, 7)}
	case opts.StartDate != nil && opts.EndDate != nil:
		due = bson.M{"$gte": *opts.StartDate, "$lte": *opts.EndDate}
	case opts.StartDate != nil:
		due = bson.M{"$gte": *opts.StartDate}
	case opts.EndDate != nil:
		due = bson.M{"$lte": *opts.EndDate}
	}
	filter["dueDate"] = due

	return s.page(ctx, filter, sortDoc("dueDate", opts.SortOrder), opts.ListOptions)
}

func (s *TodoService) GetByTag(ctx context.Context, userID bson.ObjectID, tag string, opts ListOptions) (*TodoPage, error) {
	normalized := utils.NormalizeTag(tag)
	if normalized == "" {
		return nil, apperrors.NewBadRequest("Invalid tag")
	}
	opts = s.normalize(opts)

	filter := bson.M{
		"user": userID,
		"tags": bson.M{"$regex": utils.EscapeRegex(normalized), "$options": "i"},
	}
	if opts.Search != "" {
		quoted := utils.EscapeRegex(opts.Search)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": quoted, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": quoted, "$options": "i"}},
		}
	}
	return s.page(ctx, filter, sortDoc(opts.SortBy, opts.SortOrder), opts)
}
