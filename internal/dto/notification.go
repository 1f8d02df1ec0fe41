package dto

// ── 通知模块 DTO ──

// SubscribePushRequest Web Push 订阅请求
type SubscribePushRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth"   binding:"required"`
	} `json:"keys" binding:"required"`
}

// SendNotificationRequest 发送通知请求（管理端）
type SendNotificationRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Title  string `json:"title"   binding:"required,min=1,max=100"`
	Body   string `json:"body"    binding:"required,min=1,max=500"`
}

// NotificationMessage WebSocket / Push 推送消息体
type NotificationMessage struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
	At    string `json:"at"`
}
