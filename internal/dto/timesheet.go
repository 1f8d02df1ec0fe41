package dto

// ── 工时追踪模块 DTO ──

// StartTimerRequest 开始计时请求
type StartTimerRequest struct {
	TaskID      string `json:"task_id"     binding:"required,uuid"`
	Description string `json:"description" binding:"omitempty,max=500"`
	Billable    *bool  `json:"billable"`
}

// StopTimerRequest 停止计时请求
type StopTimerRequest struct {
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// TimesheetRequest 工时单查询（按日期区间）
type TimesheetRequest struct {
	UserID    string `form:"user_id"    binding:"omitempty,uuid"`
	StartDate string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date"   binding:"required,datetime=2006-01-02"`
}

// TimeEntryResponse 工时条目响应
type TimeEntryResponse struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	TaskID        string   `json:"task_id"`
	TaskTitle     string   `json:"task_title,omitempty"`
	ProjectID     string   `json:"project_id"`
	ProjectName   string   `json:"project_name,omitempty"`
	StartTime     string   `json:"start_time"`
	EndTime       *string  `json:"end_time,omitempty"`
	DurationHours *float64 `json:"duration_hours,omitempty"`
	Description   string   `json:"description"`
	Billable      bool     `json:"billable"`
	Status        string   `json:"status"`
}

// TimesheetResponse 工时单响应
type TimesheetResponse struct {
	Entries    []TimeEntryResponse `json:"entries"`
	TotalHours float64             `json:"total_hours"`
	StartDate  string              `json:"start_date"`
	EndDate    string              `json:"end_date"`
}

// AttendanceResponse 出勤响应（由工时派生）
type AttendanceResponse struct {
	Date   string  `json:"date"`
	Hours  float64 `json:"hours"`
	Status string  `json:"status"` // present / half_day / absent
}

// ── 薪酬模块 DTO ──

// CalculatePayrollRequest 薪酬试算请求
type CalculatePayrollRequest struct {
	UserID    string `json:"user_id"    binding:"required,uuid"`
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date"   binding:"required,datetime=2006-01-02"`
}

// PostPayrollRequest 薪酬入账请求
type PostPayrollRequest struct {
	CalculatePayrollRequest
	Status string `json:"status" binding:"omitempty,oneof=pending approved paid"`
}

// PayrollResponse 薪酬周期响应
type PayrollResponse struct {
	ID         string  `json:"id,omitempty"`
	UserID     string  `json:"user_id"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	HourlyRate float64 `json:"hourly_rate"`
	TotalHours float64 `json:"total_hours"`
	TotalPay   float64 `json:"total_pay"`
	Status     string  `json:"status,omitempty"`
}
