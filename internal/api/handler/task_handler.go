package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/pkg/response"
)

// TaskHandler 任务模块 HTTP 处理器
type TaskHandler struct {
	taskSvc service.TaskService
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(taskSvc service.TaskService) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc}
}

// Create 在项目下创建任务
// POST /api/v1/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.taskSvc.Create(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskProjectMissing):
			response.NotFound(c, 13002, "项目不存在")
		case errors.Is(err, service.ErrAssigneeNotMember):
			response.BadRequest(c, 14001, "被指派人不是项目成员")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// Get 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	result, err := h.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.NotFound(c, 14002, "任务不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Update 更新任务
// PATCH /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.taskSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			response.NotFound(c, 14002, "任务不存在")
		case errors.Is(err, service.ErrAssigneeNotMember):
			response.BadRequest(c, 14001, "被指派人不是项目成员")
		case errors.Is(err, service.ErrVersionConflict):
			response.Conflict(c, 13004, "数据已被他人修改，请刷新后重试")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// Delete 删除任务
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.taskSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.NotFound(c, 14002, "任务不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// ListByProject 项目下任务列表
// GET /api/v1/projects/:id/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	var req dto.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tasks, total, err := h.taskSvc.ListByProject(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrTaskProjectMissing) {
			response.NotFound(c, 13002, "项目不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OKPage(c, tasks, total, req.GetPage(), req.GetPageSize())
}
