package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/pkg/response"
)

// ProjectHandler 项目模块 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// Create 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.BadRequest(c, 13001, "指定的客户不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, result)
}

// Get 获取项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.projectSvc.GetByID(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			response.NotFound(c, 13002, "项目不存在")
		case errors.Is(err, service.ErrProjectForbidden):
			response.Forbidden(c, 13003, "无权访问该项目")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// List 项目列表（管理角色全量，其他角色仅可见集）
// GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.ListProjectsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	projects, total, err := h.projectSvc.List(c.Request.Context(), &req, userID, role)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, projects, total, req.GetPage(), req.GetPageSize())
}

// Update 更新项目
// PATCH /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			response.NotFound(c, 13002, "项目不存在")
		case errors.Is(err, service.ErrVersionConflict):
			response.Conflict(c, 13004, "数据已被他人修改，请刷新后重试")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// Delete 删除项目（级联删除任务与成员）
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			response.NotFound(c, 13002, "项目不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// AddMember 添加项目成员
// POST /api/v1/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.projectSvc.AddMember(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound):
			response.NotFound(c, 13002, "项目不存在")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 12001, "用户不存在")
		case errors.Is(err, service.ErrMemberExists):
			response.Conflict(c, 13005, "用户已是项目成员")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// RemoveMember 移除项目成员
// DELETE /api/v1/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	err := h.projectSvc.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			response.NotFound(c, 13006, "项目成员不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// ListMembers 项目成员列表
// GET /api/v1/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	result, err := h.projectSvc.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			response.NotFound(c, 13002, "项目不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}
