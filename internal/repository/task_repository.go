package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByBoard returns the board's tasks, most recently created first.
func (r *TaskRepository) ListByBoard(ctx context.Context, boardID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("board_id = ?", boardID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOpenWithDueDate returns the owner's unfinished tasks that carry a due date,
// earliest due first.
func (r *TaskRepository) ListOpenWithDueDate(ctx context.Context, ownerID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Where("boards.user_id = ? AND tasks.status <> ? AND tasks.due_date IS NOT NULL", ownerID, model.StatusDone).
		Order("tasks.due_date ASC, tasks.id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID uint, status model.Status) error {
	return r.update(ctx, taskID, map[string]interface{}{"status": status}, "update status")
}

func (r *TaskRepository) UpdatePriority(ctx context.Context, taskID uint, priority model.Priority) error {
	return r.update(ctx, taskID, map[string]interface{}{"priority": priority}, "update priority")
}

// UpdateContent overwrites title, description and due date; a nil due date clears it.
func (r *TaskRepository) UpdateContent(ctx context.Context, taskID uint, title string, description *string, dueDate *time.Time) error {
	updates := map[string]interface{}{
		"title":       title,
		"description": description,
		"due_date":    dueDate,
	}
	return r.update(ctx, taskID, updates, "update content")
}

// Delete removes a task. It returns gorm.ErrRecordNotFound when no row matched.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, taskID)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) update(ctx context.Context, taskID uint, updates map[string]interface{}, op string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
