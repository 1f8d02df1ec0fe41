package dto

// ── 报表模块 DTO ──

// CreateReportRequest 创建报表请求（异步生成）
type CreateReportRequest struct {
	Type      string  `json:"type"       binding:"required,oneof=time_entries activity screenshots"`
	UserID    *string `json:"user_id"    binding:"omitempty,uuid"`
	ProjectID *string `json:"project_id" binding:"omitempty,uuid"`
	StartDate string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string  `json:"end_date"   binding:"required,datetime=2006-01-02"`
}

// ListReportsRequest 报表列表查询
type ListReportsRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
}

// ReportResponse 报表响应
type ReportResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	DownloadURL *string `json:"download_url,omitempty"`
	Error       *string `json:"error,omitempty"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
}
