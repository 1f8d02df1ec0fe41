package dto

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string   `json:"name"        binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"omitempty,max=2000"`
	Status      string   `json:"status"      binding:"omitempty,oneof=planning in_progress on_hold completed"`
	Budget      *float64 `json:"budget"      binding:"omitempty,gte=0"`
	ClientID    *string  `json:"client_id"   binding:"omitempty,uuid"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        *string  `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
	Status      *string  `json:"status"      binding:"omitempty,oneof=planning in_progress on_hold completed"`
	Budget      *float64 `json:"budget"      binding:"omitempty,gte=0"`
	ClientID    *string  `json:"client_id"   binding:"omitempty,uuid"`
	Version     int      `json:"version"     binding:"required,min=1"`
}

// AddMemberRequest 添加项目成员请求
type AddMemberRequest struct {
	UserID     string   `json:"user_id"     binding:"required,uuid"`
	Role       string   `json:"role"        binding:"omitempty,oneof=member manager admin"`
	HourlyRate *float64 `json:"hourly_rate" binding:"omitempty,gte=0"`
}

// ListProjectsRequest 项目列表查询
type ListProjectsRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=planning in_progress on_hold completed"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Status      string                  `json:"status"`
	Budget      *float64                `json:"budget,omitempty"`
	ClientID    *string                 `json:"client_id,omitempty"`
	CreatedBy   string                  `json:"created_by"`
	Version     int                     `json:"version"`
	Members     []ProjectMemberResponse `json:"members,omitempty"`
	CreatedAt   string                  `json:"created_at"`
}

// ProjectMemberResponse 项目成员响应
type ProjectMemberResponse struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
	JoinedAt   string   `json:"joined_at"`
}
