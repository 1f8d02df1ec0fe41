package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Aliwaris512/Apploye/internal/model"
)

// PushSubscriptionRepository Web Push 订阅数据访问接口
type PushSubscriptionRepository interface {
	// Upsert 每用户仅一份订阅，重复订阅覆盖 endpoint 与密钥
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	GetByUser(ctx context.Context, userID string) (*model.PushSubscription, error)
	DeleteByUser(ctx context.Context, userID string) error
	ListAll(ctx context.Context) ([]model.PushSubscription, error)
}

// pushSubscriptionRepo PushSubscriptionRepository 的 GORM 实现
type pushSubscriptionRepo struct {
	db *gorm.DB
}

// NewPushSubscriptionRepo 创建 PushSubscriptionRepository 实例
func NewPushSubscriptionRepo(db *gorm.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepo{db: db}
}

func (r *pushSubscriptionRepo) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"endpoint", "p256dh", "auth", "updated_at"}),
		}).
		Create(sub).Error
}

func (r *pushSubscriptionRepo) GetByUser(ctx context.Context, userID string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *pushSubscriptionRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.PushSubscription{}).Error
}

func (r *pushSubscriptionRepo) ListAll(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := r.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
