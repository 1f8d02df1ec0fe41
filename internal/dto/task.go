package dto

// ── 任务模块 DTO ──

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title       string  `json:"title"       binding:"required,min=1,max=200"`
	Description string  `json:"description" binding:"omitempty,max=2000"`
	Priority    string  `json:"priority"    binding:"omitempty,oneof=low medium high"`
	AssigneeID  *string `json:"assignee_id" binding:"omitempty,uuid"`
	DueDate     *string `json:"due_date"    binding:"omitempty,datetime=2006-01-02"`
}

// UpdateTaskRequest 更新任务请求
type UpdateTaskRequest struct {
	Title       *string `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *string `json:"status"      binding:"omitempty,oneof=todo in_progress review done"`
	Priority    *string `json:"priority"    binding:"omitempty,oneof=low medium high"`
	AssigneeID  *string `json:"assignee_id" binding:"omitempty,uuid"`
	DueDate     *string `json:"due_date"    binding:"omitempty,datetime=2006-01-02"`
	Version     int     `json:"version"     binding:"required,min=1"`
}

// ListTasksRequest 任务列表查询
type ListTasksRequest struct {
	PaginationRequest
	Status     string `form:"status"      binding:"omitempty,oneof=todo in_progress review done"`
	AssigneeID string `form:"assignee_id" binding:"omitempty,uuid"`
}

// TaskResponse 任务响应
type TaskResponse struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	Priority     string  `json:"priority"`
	AssigneeID   *string `json:"assignee_id,omitempty"`
	AssigneeName string  `json:"assignee_name,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Version      int     `json:"version"`
	CreatedAt    string  `json:"created_at"`
}
