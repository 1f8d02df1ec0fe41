package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
	apperrors "github.com/Aliwaris512/Apploye/pkg/errors"
)

// ── 任务模块业务错误 ──

var (
	ErrTaskNotFound       = errors.New("任务不存在")
	ErrAssigneeNotMember  = errors.New("被指派人不是项目成员")
	ErrTaskProjectMissing = errors.New("任务所属项目不存在")
)

// TaskService 任务业务接口
type TaskService interface {
	Create(ctx context.Context, projectID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TaskResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string, req *dto.ListTasksRequest) ([]dto.TaskResponse, int64, error)
}

type taskService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTaskService 创建 TaskService 实例
func NewTaskService(repo *repository.Repository, logger *zap.Logger) TaskService {
	return &taskService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *taskService) Create(ctx context.Context, projectID string, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskProjectMissing
		}
		return nil, err
	}

	// 指派人必须已在项目内
	if req.AssigneeID != nil {
		if err := s.checkAssignee(ctx, projectID, *req.AssigneeID); err != nil {
			return nil, err
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = model.TaskPriorityMedium
	}

	task := &model.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatusTodo,
		Priority:    priority,
		AssigneeID:  req.AssigneeID,
	}

	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err == nil {
			task.DueDate = &due
		}
	}

	if err := s.repo.Task.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	return toTaskResponse(task), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *taskService) GetByID(ctx context.Context, id string) (*dto.TaskResponse, error) {
	task, err := s.repo.Task.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toTaskResponse(task), nil
}

// ────────────────────── Update ──────────────────────

func (s *taskService) Update(ctx context.Context, id string, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, err := s.repo.Task.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task.Version = req.Version

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.AssigneeID != nil {
		if err := s.checkAssignee(ctx, task.ProjectID, *req.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = req.AssigneeID
	}
	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err == nil {
			task.DueDate = &due
		}
	}

	if err := s.repo.Task.Update(ctx, task); err != nil {
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			return nil, ErrVersionConflict
		}
		s.logger.Error("更新任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toTaskResponse(task), nil
}

// ────────────────────── Delete ──────────────────────

func (s *taskService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Task.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		s.logger.Error("删除任务失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ListByProject ──────────────────────

func (s *taskService) ListByProject(ctx context.Context, projectID string, req *dto.ListTasksRequest) ([]dto.TaskResponse, int64, error) {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrTaskProjectMissing
		}
		return nil, 0, err
	}

	filters := &repository.TaskListFilters{
		Status:     req.Status,
		AssigneeID: req.AssigneeID,
	}

	tasks, total, err := s.repo.Task.ListByProject(ctx, projectID, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出任务失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, *toTaskResponse(&tasks[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *taskService) checkAssignee(ctx context.Context, projectID, userID string) error {
	if _, err := s.repo.ProjectMember.GetByProjectAndUser(ctx, projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotMember
		}
		return err
	}
	return nil
}

func toTaskResponse(task *model.Task) *dto.TaskResponse {
	resp := &dto.TaskResponse{
		ID:          task.TaskID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		AssigneeID:  task.AssigneeID,
		Version:     task.Version,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
	if task.Assignee != nil {
		resp.AssigneeName = task.Assignee.Name
	}
	if task.DueDate != nil {
		d := task.DueDate.Format("2006-01-02")
		resp.DueDate = &d
	}
	return resp
}
