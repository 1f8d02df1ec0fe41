package handler

import (
	"errors"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Create 创建报表任务（异步生成）
// POST /api/v1/reports
func (h *ReportHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reportSvc.Create(c.Request.Context(), &req, userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			response.BadRequest(c, 15004, "日期区间无效")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, result)
}

// Get 查询报表任务状态
// GET /api/v1/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.reportSvc.GetByID(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// List 报表任务列表
// GET /api/v1/reports
func (h *ReportHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	reports, total, err := h.reportSvc.List(c.Request.Context(), &req, userID, role)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, reports, total, req.GetPage(), req.GetPageSize())
}

// Download 下载已生成的报表文件
// GET /api/v1/reports/:id/download
func (h *ReportHandler) Download(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	path, err := h.reportSvc.ResolveFile(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// ── 内部辅助方法 ──

func (h *ReportHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		response.NotFound(c, 17001, "报表不存在")
	case errors.Is(err, service.ErrReportForbidden):
		response.Forbidden(c, 17002, "无权访问该报表")
	case errors.Is(err, service.ErrReportNotReady):
		response.Conflict(c, 17003, "报表尚未生成完成")
	default:
		response.InternalError(c)
	}
}
