package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/pkg/response"
	"github.com/Aliwaris512/Apploye/pkg/storage"
)

// ScreenshotHandler 截图模块 HTTP 处理器
type ScreenshotHandler struct {
	activitySvc service.ActivityService
	maxSize     int64
}

// NewScreenshotHandler 创建 ScreenshotHandler
func NewScreenshotHandler(activitySvc service.ActivityService, maxSize int64) *ScreenshotHandler {
	return &ScreenshotHandler{activitySvc: activitySvc, maxSize: maxSize}
}

// Upload 上传截图（multipart 表单字段 file，可选 time_entry_id）
// POST /api/v1/screenshots
func (h *ScreenshotHandler) Upload(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16004, "缺少上传文件")
		return
	}
	if fileHeader.Size > h.maxSize {
		response.Error(c, 413, 16005, "文件超出大小限制")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxSize+1))
	if err != nil {
		response.InternalError(c)
		return
	}

	var timeEntryID *string
	if v := c.PostForm("time_entry_id"); v != "" {
		timeEntryID = &v
	}

	result, err := h.activitySvc.SaveScreenshot(c.Request.Context(), userID, timeEntryID, fileHeader.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrExtensionNotAllowed):
			response.BadRequest(c, 16006, "不支持的文件类型")
		case errors.Is(err, storage.ErrFileTooLarge):
			response.Error(c, 413, 16005, "文件超出大小限制")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, result)
}

// List 截图列表
// GET /api/v1/screenshots
func (h *ScreenshotHandler) List(c *gin.Context) {
	activityHandler := &ActivityHandler{activitySvc: h.activitySvc}
	targetID, req, ok := activityHandler.bindQuery(c)
	if !ok {
		return
	}

	result, err := h.activitySvc.ListScreenshots(c.Request.Context(), targetID, req)
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

// ServeFile 下载截图原图
// GET /api/v1/screenshots/:id/file
func (h *ScreenshotHandler) ServeFile(c *gin.Context) {
	h.serve(c, false)
}

// ServeThumbnail 下载截图缩略图
// GET /api/v1/screenshots/:id/thumbnail
func (h *ScreenshotHandler) ServeThumbnail(c *gin.Context) {
	h.serve(c, true)
}

func (h *ScreenshotHandler) serve(c *gin.Context, thumbnail bool) {
	path, err := h.activitySvc.ResolveScreenshot(c.Request.Context(), c.Param("id"), thumbnail)
	if err != nil {
		if errors.Is(err, service.ErrScreenshotNotFound) {
			response.NotFound(c, 16007, "截图不存在")
			return
		}
		response.InternalError(c)
		return
	}
	c.File(path)
}
