package dto

// ── 活动采集模块 DTO ──

// EnqueueSampleRequest 客户端上报采样（入队）
type EnqueueSampleRequest struct {
	DeviceID        string         `json:"device_id"        binding:"required,min=1,max=100"`
	Type            string         `json:"type"             binding:"required,oneof=app_usage idle_time active_time"`
	TimeEntryID     *string        `json:"time_entry_id"    binding:"omitempty,uuid"`
	StartTime       string         `json:"start_time"       binding:"required"`
	EndTime         *string        `json:"end_time"`
	DurationSeconds *int64         `json:"duration_seconds" binding:"omitempty,gte=0"`
	Payload         map[string]any `json:"payload"          binding:"required"`
	ActivityScore   *int           `json:"activity_score"   binding:"omitempty,min=0,max=100"`
	IdempotencyKey  string         `json:"idempotency_key"  binding:"required,min=8,max=64"`
}

// SyncRequest 触发队列同步
type SyncRequest struct {
	DeviceID string `json:"device_id" binding:"required,min=1,max=100"`
}

// SyncResponse 同步结果
type SyncResponse struct {
	Synced  int `json:"synced"`  // 新写入条数
	Skipped int `json:"skipped"` // 幂等跳过条数
	Pending int `json:"pending"` // 队列剩余条数
}

// ActivityQueryRequest 活动记录查询
type ActivityQueryRequest struct {
	PaginationRequest
	UserID    string `form:"user_id"    binding:"omitempty,uuid"`
	Type      string `form:"type"       binding:"omitempty,oneof=app_usage idle_time active_time screenshot"`
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date"   binding:"required,datetime=2006-01-02"`
}

// ActivityRecordResponse 活动记录响应
type ActivityRecordResponse struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	TimeEntryID     *string        `json:"time_entry_id,omitempty"`
	Type            string         `json:"type"`
	StartTime       string         `json:"start_time"`
	EndTime         *string        `json:"end_time,omitempty"`
	DurationSeconds *int64         `json:"duration_seconds,omitempty"`
	Payload         map[string]any `json:"payload"`
	ActivityScore   *int           `json:"activity_score,omitempty"`
}

// UsageSummaryResponse 应用使用汇总响应
type UsageSummaryResponse struct {
	AppName      string  `json:"app_name"`
	TotalSeconds float64 `json:"total_seconds"`
	Percent      float64 `json:"percent"`
}

// ScreenshotResponse 截图元数据响应
type ScreenshotResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	TimeEntryID  *string `json:"time_entry_id,omitempty"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	RecordedAt   string `json:"recorded_at"`
}
