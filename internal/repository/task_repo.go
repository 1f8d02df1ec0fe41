package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/model"
	apperrors "github.com/Aliwaris512/Apploye/pkg/errors"
)

// TaskListFilters 任务列表过滤条件
type TaskListFilters struct {
	Status     string
	AssigneeID string
}

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string, filters *TaskListFilters, offset, limit int) ([]model.Task, int64, error)
}

// taskRepo TaskRepository 的 GORM 实现
type taskRepo struct {
	db *gorm.DB
}

// NewTaskRepo 创建 TaskRepository 实例
func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("task_id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepo) Update(ctx context.Context, task *model.Task) error {
	oldVersion := task.Version
	task.Version = oldVersion + 1

	res := r.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("task_id = ? AND version = ?", task.TaskID, oldVersion).
		Select("title", "description", "status", "priority", "assignee_id", "due_date", "version", "updated_at").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("task_id = ?", id).
		Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepo) ListByProject(ctx context.Context, projectID string, filters *TaskListFilters, offset, limit int) ([]model.Task, int64, error) {
	var tasks []model.Task
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("project_id = ?", projectID)

	if filters != nil {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.AssigneeID != "" {
			db = db.Where("assignee_id = ?", filters.AssigneeID)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Assignee").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}
