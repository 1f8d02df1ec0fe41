package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户请求
type CreateUserRequest struct {
	Name       string   `json:"name"        binding:"required,min=2,max=50"`
	Email      string   `json:"email"       binding:"required,email"`
	Password   string   `json:"password"    binding:"required,min=8,max=72"`
	Role       string   `json:"role"        binding:"required,oneof=admin manager employee client"`
	HourlyRate *float64 `json:"hourly_rate" binding:"omitempty,gte=0"`
}

// UpdateUserRequest 更新用户请求（字段均可选）
type UpdateUserRequest struct {
	Name       *string  `json:"name"        binding:"omitempty,min=2,max=50"`
	Role       *string  `json:"role"        binding:"omitempty,oneof=admin manager employee client"`
	IsActive   *bool    `json:"is_active"`
	HourlyRate *float64 `json:"hourly_rate" binding:"omitempty,gte=0"`
}

// ListUsersRequest 用户列表查询
type ListUsersRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=admin manager employee client"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
	Active  *bool  `form:"active"`
}
