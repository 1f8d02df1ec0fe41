package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/model"
)

// TimeEntryFilters 报表查询过滤条件
type TimeEntryFilters struct {
	UserIDs    []string
	ProjectIDs []string
	StartDate  *time.Time
	EndDate    *time.Time
}

// TimeEntryRepository 工时数据访问接口
type TimeEntryRepository interface {
	// CreateOpen 插入一条进行中的记录
	// 该用户已有进行中记录时由部分唯一索引拦截，返回 gorm.ErrDuplicatedKey
	CreateOpen(ctx context.Context, entry *model.TimeEntry) error
	GetOpenByUser(ctx context.Context, userID string) (*model.TimeEntry, error)
	GetOpenByID(ctx context.Context, userID, entryID string) (*model.TimeEntry, error)
	Update(ctx context.Context, entry *model.TimeEntry) error
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]model.TimeEntry, error)
	// SumCompletedHours 汇总区间内已完成记录的时长
	SumCompletedHours(ctx context.Context, userID string, from, to time.Time) (float64, error)
	ListForReport(ctx context.Context, filters *TimeEntryFilters) ([]model.TimeEntry, error)
}

// timeEntryRepo TimeEntryRepository 的 GORM 实现
type timeEntryRepo struct {
	db *gorm.DB
}

// NewTimeEntryRepo 创建 TimeEntryRepository 实例
func NewTimeEntryRepo(db *gorm.DB) TimeEntryRepository {
	return &timeEntryRepo{db: db}
}

func (r *timeEntryRepo) CreateOpen(ctx context.Context, entry *model.TimeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *timeEntryRepo) GetOpenByUser(ctx context.Context, userID string) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timeEntryRepo) GetOpenByID(ctx context.Context, userID, entryID string) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	err := r.db.WithContext(ctx).
		Where("time_entry_id = ? AND user_id = ? AND end_time IS NULL", entryID, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timeEntryRepo) Update(ctx context.Context, entry *model.TimeEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *timeEntryRepo) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Project").
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *timeEntryRepo) SumCompletedHours(ctx context.Context, userID string, from, to time.Time) (float64, error) {
	var total *float64
	err := r.db.WithContext(ctx).
		Model(&model.TimeEntry{}).
		Select("SUM(duration_hours)").
		Where("user_id = ? AND status = ? AND start_time >= ? AND start_time < ?",
			userID, model.TimeEntryStatusCompleted, from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *timeEntryRepo) ListForReport(ctx context.Context, filters *TimeEntryFilters) ([]model.TimeEntry, error) {
	db := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Project").
		Model(&model.TimeEntry{})

	if filters != nil {
		if len(filters.UserIDs) > 0 {
			db = db.Where("user_id IN ?", filters.UserIDs)
		}
		if len(filters.ProjectIDs) > 0 {
			db = db.Where("project_id IN ?", filters.ProjectIDs)
		}
		if filters.StartDate != nil {
			db = db.Where("start_time >= ?", *filters.StartDate)
		}
		if filters.EndDate != nil {
			db = db.Where("start_time < ?", *filters.EndDate)
		}
	}

	var entries []model.TimeEntry
	if err := db.Order("start_time ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
