package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Aliwaris512/Apploye/internal/authz"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/pkg/response"
)

// ActivityHandler 活动采集模块 HTTP 处理器
type ActivityHandler struct {
	activitySvc service.ActivityService
}

// NewActivityHandler 创建 ActivityHandler
func NewActivityHandler(activitySvc service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc}
}

// Enqueue 采样入队（客户端高频上报路径）
// POST /api/v1/activities/enqueue
func (h *ActivityHandler) Enqueue(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.EnqueueSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	pending, err := h.activitySvc.EnqueueSample(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSampleTime) {
			response.BadRequest(c, 16001, "采样时间格式无效")
			return
		}
		if errors.Is(err, service.ErrQueueUnavailable) {
			response.Error(c, 503, 16004, "采样队列不可用")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"pending": pending})
}

// Sync 触发设备队列同步落库
// POST /api/v1/activities/sync
func (h *ActivityHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.activitySvc.Sync(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			response.Conflict(c, 16002, "该设备正在同步中")
			return
		}
		if errors.Is(err, service.ErrQueueUnavailable) {
			response.Error(c, 503, 16004, "采样队列不可用")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Track 直接落库（低频采样路径）
// POST /api/v1/activities
func (h *ActivityHandler) Track(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.EnqueueSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.activitySvc.Track(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSampleTime) {
			response.BadRequest(c, 16001, "采样时间格式无效")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, result)
}

// List 活动记录查询
// GET /api/v1/activities
func (h *ActivityHandler) List(c *gin.Context) {
	targetID, req, ok := h.bindQuery(c)
	if !ok {
		return
	}

	result, err := h.activitySvc.List(c.Request.Context(), targetID, req)
	if err != nil {
		h.writeQueryError(c, err)
		return
	}
	response.OK(c, result)
}

// UsageSummary 应用使用汇总
// GET /api/v1/activities/summary
func (h *ActivityHandler) UsageSummary(c *gin.Context) {
	targetID, req, ok := h.bindQuery(c)
	if !ok {
		return
	}

	result, err := h.activitySvc.UsageSummary(c.Request.Context(), targetID, req)
	if err != nil {
		h.writeQueryError(c, err)
		return
	}
	response.OK(c, result)
}

// ── 内部辅助方法 ──

// bindQuery 绑定查询参数并解析目标用户（查他人需管理权限）
func (h *ActivityHandler) bindQuery(c *gin.Context) (string, *dto.ActivityQueryRequest, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", nil, false
	}

	var req dto.ActivityQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return "", nil, false
	}

	targetID := userID
	if req.UserID != "" && req.UserID != userID {
		role, ok := MustGetRole(c)
		if !ok {
			return "", nil, false
		}
		if !authz.Can(role, authz.ActionTimesheetOther) {
			response.Forbidden(c, 16003, "无权查看他人活动记录")
			return "", nil, false
		}
		targetID = req.UserID
	}

	return targetID, &req, true
}

func (h *ActivityHandler) writeQueryError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidDateRange) {
		response.BadRequest(c, 15004, "日期区间无效")
		return
	}
	response.InternalError(c)
}
