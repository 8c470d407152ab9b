package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/observability"
	"github.com/beamdash/backend/internal/pkg/saga"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Todo list scopes.
const (
	ScopeMine = "mine"
	ScopeAll  = "all"
)

// ErrReorderFailed is what the caller sees when a reorder was rolled back.
var ErrReorderFailed = errors.New("Failed to update display order.")

// TodoInput carries the editable fields of a todo. Nil fields are left as
// they are on update. Tags is the comma separated form used by the UI.
type TodoInput struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	IsCompleted     *bool      `json:"is_completed"`
	IsImportant     *bool      `json:"is_important"`
	DueDate         *time.Time `json:"due_date"`
	Tags            *string    `json:"tags"`
	RepeatFrequency *string    `json:"repeat_frequency"`
}

type TodoService struct {
	db      *gorm.DB
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewTodoService(db *gorm.DB, metrics *observability.Metrics, logger *zap.Logger) *TodoService {
	return &TodoService{db: db, metrics: metrics, logger: logger}
}

// List returns the todos of a scope ordered by display order. Only admins
// may see every user's todos.
func (s *TodoService) List(ctx context.Context, caller Caller, scope string) ([]models.Todo, error) {
	query, err := s.scoped(ctx, caller, scope)
	if err != nil {
		return nil, err
	}
	todos := []models.Todo{}
	if err := query.Order("display_order ASC").Order("created_at ASC").Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (s *TodoService) scoped(ctx context.Context, caller Caller, scope string) (*gorm.DB, error) {
	query := s.db.WithContext(ctx).Model(&models.Todo{})
	switch scope {
	case ScopeMine, "":
		return query.Where("user_id = ?", caller.ID), nil
	case ScopeAll:
		if !caller.Can(models.AccessAdmin) {
			return nil, ErrForbidden
		}
		return query, nil
	default:
		return nil, invalid("Invalid scope %q", scope)
	}
}

// Create appends a todo after the caller's last one.
func (s *TodoService) Create(ctx context.Context, userID uuid.UUID, in TodoInput) (*models.Todo, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("Title is required")
	}
	todo := &models.Todo{UserID: userID}
	if err := applyTodoInput(todo, in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.Todo{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(display_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		todo.DisplayOrder = maxOrder + 1
		return tx.Create(todo).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, userID, todoID uuid.UUID, in TodoInput) (*models.Todo, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("Title is required")
	}
	var todo models.Todo
	if err := s.db.WithContext(ctx).First(&todo, "id = ? AND user_id = ?", todoID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := applyTodoInput(&todo, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&todo).Error; err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return &todo, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, todoID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", todoID, userID).Delete(&models.Todo{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reorder persists ids as the new order of the visible list, ranking them
// 1..N. Each rank is written on its own; if one write fails the ones already
// written are restored.
func (s *TodoService) Reorder(ctx context.Context, caller Caller, scope string, ids []uuid.UUID) ([]Rank, error) {
	if len(ids) == 0 {
		return nil, invalid("No todos to reorder")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, invalid("Duplicate todo %s", id)
		}
		seen[id] = struct{}{}
	}

	query, err := s.scoped(ctx, caller, scope)
	if err != nil {
		return nil, err
	}
	var current []models.Todo
	if err := query.Where("id IN ?", ids).Find(&current).Error; err != nil {
		return nil, err
	}
	if len(current) != len(ids) {
		return nil, ErrNotFound
	}
	previous := make(map[uuid.UUID]int, len(current))
	for _, t := range current {
		previous[t.ID] = t.DisplayOrder
	}

	ranks := Renumber(ids)
	sg := saga.New("todo_reorder", s.logger)
	for _, rank := range ranks {
		sg.Add(saga.Step{
			Name: "rank " + rank.ID.String(),
			Do: func(ctx context.Context) error {
				return s.setOrder(ctx, rank.ID, rank.DisplayOrder)
			},
			Compensate: func(ctx context.Context) error {
				return s.setOrder(ctx, rank.ID, previous[rank.ID])
			},
		})
	}
	if err := sg.Run(ctx); err != nil {
		s.metrics.ObserveSaga("todo_reorder", sg.State().Phase.String())
		s.logger.Error("todo reorder failed", zap.String("state", sg.State().String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrReorderFailed, err)
	}
	s.metrics.ObserveSaga("todo_reorder", sg.State().Phase.String())
	return ranks, nil
}

// Move drags the todo at position from to position to (both 1-based) within
// the scope's current order and persists the result.
func (s *TodoService) Move(ctx context.Context, caller Caller, scope string, from, to int) ([]Rank, error) {
	todos, err := s.List(ctx, caller, scope)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(todos))
	for i, t := range todos {
		ids[i] = t.ID
	}
	moved, err := Move(ids, from-1, to-1)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	return s.Reorder(ctx, caller, scope, moved)
}

func (s *TodoService) setOrder(ctx context.Context, id uuid.UUID, order int) error {
	res := s.db.WithContext(ctx).Model(&models.Todo{}).Where("id = ?", id).Update("display_order", order)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	return nil
}

func applyTodoInput(t *models.Todo, in TodoInput) error {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.IsCompleted != nil {
		t.IsCompleted = *in.IsCompleted
	}
	if in.IsImportant != nil {
		t.IsImportant = *in.IsImportant
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.Tags != nil {
		t.Tags = models.ParseTags(*in.Tags)
	}
	if in.RepeatFrequency != nil {
		f, err := models.ParseRepeatFrequency(*in.RepeatFrequency)
		if err != nil {
			return invalid("Invalid repeat frequency")
		}
		t.RepeatFrequency = f
	}
	return nil
}
