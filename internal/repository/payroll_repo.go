package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/model"
)

// PayrollRepository 薪酬周期数据访问接口
type PayrollRepository interface {
	Create(ctx context.Context, period *model.PayrollPeriod) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.PayrollPeriod, int64, error)
}

// payrollRepo PayrollRepository 的 GORM 实现
type payrollRepo struct {
	db *gorm.DB
}

// NewPayrollRepo 创建 PayrollRepository 实例
func NewPayrollRepo(db *gorm.DB) PayrollRepository {
	return &payrollRepo{db: db}
}

func (r *payrollRepo) Create(ctx context.Context, period *model.PayrollPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *payrollRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.PayrollPeriod, int64, error) {
	var periods []model.PayrollPeriod
	var total int64

	db := r.db.WithContext(ctx).Model(&model.PayrollPeriod{}).
		Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("start_date DESC").
		Find(&periods).Error; err != nil {
		return nil, 0, err
	}

	return periods, total, nil
}
