package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Aliwaris512/Apploye/internal/authz"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/pkg/response"
)

// TimesheetHandler 工时与薪酬模块 HTTP 处理器
type TimesheetHandler struct {
	timesheetSvc service.TimesheetService
}

// NewTimesheetHandler 创建 TimesheetHandler
func NewTimesheetHandler(timesheetSvc service.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{timesheetSvc: timesheetSvc}
}

// StartTimer 开始计时
// POST /api/v1/timer/start
func (h *TimesheetHandler) StartTimer(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.StartTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timesheetSvc.StartTimer(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			response.NotFound(c, 14002, "任务不存在")
		case errors.Is(err, service.ErrNotProjectMember):
			response.Forbidden(c, 15001, "不是该项目成员，无法计时")
		case errors.Is(err, service.ErrTimerAlreadyRunning):
			response.Conflict(c, 15002, "已有进行中的计时，请先停止")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// StopTimer 停止计时
// POST /api/v1/timer/stop
func (h *TimesheetHandler) StopTimer(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.StopTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timesheetSvc.StopTimer(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNoRunningTimer) {
			response.NotFound(c, 15003, "没有进行中的计时")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// GetRunning 查询当前进行中的计时
// GET /api/v1/timer/current
func (h *TimesheetHandler) GetRunning(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.timesheetSvc.GetRunning(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoRunningTimer) {
			response.NotFound(c, 15003, "没有进行中的计时")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// GetTimesheet 查询工时单
// GET /api/v1/timesheet
func (h *TimesheetHandler) GetTimesheet(c *gin.Context) {
	targetID, ok := h.resolveTargetUser(c)
	if !ok {
		return
	}

	var req dto.TimesheetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timesheetSvc.GetTimesheet(c.Request.Context(), targetID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			response.BadRequest(c, 15004, "日期区间无效")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// GetAttendance 查询出勤（由工时派生）
// GET /api/v1/attendance
func (h *TimesheetHandler) GetAttendance(c *gin.Context) {
	targetID, ok := h.resolveTargetUser(c)
	if !ok {
		return
	}

	var req dto.TimesheetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timesheetSvc.GetAttendance(c.Request.Context(), targetID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			response.BadRequest(c, 15004, "日期区间无效")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// CalculatePayroll 薪酬试算（不落库）
// POST /api/v1/payroll/calculate
func (h *TimesheetHandler) CalculatePayroll(c *gin.Context) {
	var req dto.CalculatePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timesheetSvc.CalculatePayroll(c.Request.Context(), &req)
	if err != nil {
		h.writePayrollError(c, err)
		return
	}
	response.OK(c, result)
}

// PostPayroll 薪酬入账
// POST /api/v1/payroll
func (h *TimesheetHandler) PostPayroll(c *gin.Context) {
	var req dto.PostPayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timesheetSvc.PostPayroll(c.Request.Context(), &req)
	if err != nil {
		h.writePayrollError(c, err)
		return
	}
	response.Created(c, result)
}

// ListPayroll 薪酬周期列表
// GET /api/v1/payroll
func (h *TimesheetHandler) ListPayroll(c *gin.Context) {
	targetID := c.Query("user_id")
	if targetID == "" {
		var ok bool
		if targetID, ok = MustGetUserID(c); !ok {
			return
		}
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	periods, total, err := h.timesheetSvc.ListPayroll(c.Request.Context(), targetID, &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, periods, total, page.GetPage(), page.GetPageSize())
}

// ── 内部辅助方法 ──

// resolveTargetUser 解析查询目标用户：
// 普通员工只能查自己；带 user_id 参数查他人需要管理权限
func (h *TimesheetHandler) resolveTargetUser(c *gin.Context) (string, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", false
	}

	target := c.Query("user_id")
	if target == "" || target == userID {
		return userID, true
	}

	role, ok := MustGetRole(c)
	if !ok {
		return "", false
	}
	if !authz.Can(role, authz.ActionTimesheetOther) {
		response.Forbidden(c, 15005, "无权查看他人工时")
		return "", false
	}
	return target, true
}

func (h *TimesheetHandler) writePayrollError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 15004, "日期区间无效")
	case errors.Is(err, service.ErrNoHourlyRate):
		response.BadRequest(c, 15006, "用户未配置时薪")
	default:
		response.InternalError(c)
	}
}
