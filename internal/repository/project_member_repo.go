package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/model"
)

// ProjectMemberRepository 项目成员数据访问接口
type ProjectMemberRepository interface {
	// Add 重复 (project, user) 时返回 gorm.ErrDuplicatedKey
	Add(ctx context.Context, member *model.ProjectMember) error
	Remove(ctx context.Context, projectID, userID string) error
	GetByProjectAndUser(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error)
	// LatestRateForUser 返回用户最近一次加入项目时的费率覆盖，无则返回 nil
	LatestRateForUser(ctx context.Context, userID string) (*float64, error)
}

// projectMemberRepo ProjectMemberRepository 的 GORM 实现
type projectMemberRepo struct {
	db *gorm.DB
}

// NewProjectMemberRepo 创建 ProjectMemberRepository 实例
func NewProjectMemberRepo(db *gorm.DB) ProjectMemberRepository {
	return &projectMemberRepo{db: db}
}

func (r *projectMemberRepo) Add(ctx context.Context, member *model.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *projectMemberRepo) Remove(ctx context.Context, projectID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *projectMemberRepo) GetByProjectAndUser(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *projectMemberRepo) ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *projectMemberRepo) LatestRateForUser(ctx context.Context, userID string) (*float64, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND hourly_rate IS NOT NULL", userID).
		Order("joined_at DESC").
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return member.HourlyRate, nil
}
