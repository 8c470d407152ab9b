package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/beamdash/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TodoHandler struct {
	todoService *services.TodoService
	logger      *zap.Logger
}

func NewTodoHandler(todoService *services.TodoService, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{todoService: todoService, logger: logger}
}

// List returns the caller's todos, or everyone's with scope=all.
// GET /todos?scope=mine|all
func (h *TodoHandler) List(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	todos, err := h.todoService.List(c.Request.Context(), cl, c.DefaultQuery("scope", services.ScopeMine))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch todos", nil)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"todos": todos})
}

// Create appends a todo.
// POST /todos
func (h *TodoHandler) Create(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req services.TodoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	todo, err := h.todoService.Create(c.Request.Context(), cl.ID, req)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to create todo", nil)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"todo": todo})
}

// Update edits one of the caller's todos.
// PUT /todos/:id
func (h *TodoHandler) Update(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.TodoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	todo, err := h.todoService.Update(c.Request.Context(), cl.ID, id, req)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update todo", messages{
			services.ErrNotFound: "Todo not found",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"todo": todo})
}

// Delete removes one of the caller's todos.
// DELETE /todos/:id
func (h *TodoHandler) Delete(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.todoService.Delete(c.Request.Context(), cl.ID, id); err != nil {
		respondServiceError(c, h.logger, err, "Failed to delete todo", messages{
			services.ErrNotFound: "Todo not found",
		})
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}

// Reorder persists a new order for the visible list.
// POST /todos/reorder {scope, ids}
func (h *TodoHandler) Reorder(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Scope string      `json:"scope"`
		IDs   []uuid.UUID `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ranks, err := h.todoService.Reorder(context.WithoutCancel(c.Request.Context()), cl, req.Scope, req.IDs)
	h.respondRanks(c, ranks, err)
}

// Move drags the todo at one 1-based position to another.
// POST /todos/move {scope, from, to}
func (h *TodoHandler) Move(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Scope string `json:"scope"`
		From  int    `json:"from" binding:"required"`
		To    int    `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "from and to are required")
		return
	}

	ranks, err := h.todoService.Move(context.WithoutCancel(c.Request.Context()), cl, req.Scope, req.From, req.To)
	h.respondRanks(c, ranks, err)
}

func (h *TodoHandler) respondRanks(c *gin.Context, ranks []services.Rank, err error) {
	switch {
	case err == nil:
		respondOK(c, http.StatusOK, gin.H{"order": ranks})
	case errors.Is(err, services.ErrReorderFailed):
		h.logger.Error("todo reorder rolled back", zap.Error(err))
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, services.ErrReorderFailed.Error())
	default:
		respondServiceError(c, h.logger, err, services.ErrReorderFailed.Error(), messages{
			services.ErrNotFound: "Todo not found",
		})
	}
}
