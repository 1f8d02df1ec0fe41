package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Aliwaris512/Apploye/internal/model"
)

// ActivityFilters 活动采样查询过滤条件
type ActivityFilters struct {
	UserIDs   []string
	Types     []string
	StartDate *time.Time
	EndDate   *time.Time
}

// ActivityRepository 活动采样数据访问接口
type ActivityRepository interface {
	Create(ctx context.Context, record *model.ActivityRecord) error
	// CreateIdempotent 幂等插入：idempotency_key 冲突时静默跳过
	// 返回值表示本次是否真正写入了新行
	CreateIdempotent(ctx context.Context, record *model.ActivityRecord) (bool, error)
	GetByID(ctx context.Context, id string) (*model.ActivityRecord, error)
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]model.ActivityRecord, error)
	ListForReport(ctx context.Context, filters *ActivityFilters) ([]model.ActivityRecord, error)
}

// activityRepo ActivityRepository 的 GORM 实现
type activityRepo struct {
	db *gorm.DB
}

// NewActivityRepo 创建 ActivityRepository 实例
func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, record *model.ActivityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *activityRepo) CreateIdempotent(ctx context.Context, record *model.ActivityRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *activityRepo) GetByID(ctx context.Context, id string) (*model.ActivityRecord, error) {
	var record model.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *activityRepo) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *activityRepo) ListForReport(ctx context.Context, filters *ActivityFilters) ([]model.ActivityRecord, error) {
	db := r.db.WithContext(ctx).Model(&model.ActivityRecord{})

	if filters != nil {
		if len(filters.UserIDs) > 0 {
			db = db.Where("user_id IN ?", filters.UserIDs)
		}
		if len(filters.Types) > 0 {
			db = db.Where("activity_type IN ?", filters.Types)
		}
		if filters.StartDate != nil {
			db = db.Where("start_time >= ?", *filters.StartDate)
		}
		if filters.EndDate != nil {
			db = db.Where("start_time < ?", *filters.EndDate)
		}
	}

	var records []model.ActivityRecord
	if err := db.Order("start_time ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
