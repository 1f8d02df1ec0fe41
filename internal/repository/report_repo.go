package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/model"
)

// ReportRepository 报表任务数据访问接口
type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id string) (*model.Report, error)
	Update(ctx context.Context, report *model.Report) error
	List(ctx context.Context, createdBy string, offset, limit int) ([]model.Report, int64, error)
}

// reportRepo ReportRepository 的 GORM 实现
type reportRepo struct {
	db *gorm.DB
}

// NewReportRepo 创建 ReportRepository 实例
func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Create(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepo) GetByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).
		Where("report_id = ?", id).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) Update(ctx context.Context, report *model.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *reportRepo) List(ctx context.Context, createdBy string, offset, limit int) ([]model.Report, int64, error) {
	var reports []model.Report
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Report{})
	if createdBy != "" {
		db = db.Where("created_by = ?", createdBy)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}
