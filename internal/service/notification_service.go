package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
	"github.com/Aliwaris512/Apploye/internal/ws"
)

// ── 通知模块业务错误 ──

var ErrSubscriptionNotFound = errors.New("推送订阅不存在")

// 通知类型
const (
	NotificationTypeDirect       = "direct"
	NotificationTypeLongUsage    = "long_usage"
	NotificationTypeWeeklyReport = "weekly_report"
	NotificationTypeReportReady  = "report_ready"
)

// NotificationService 通知业务接口
// 投递策略：优先走在线 WebSocket，离线用户回落到 Web Push
type NotificationService interface {
	Subscribe(ctx context.Context, userID string, req *dto.SubscribePushRequest) error
	Unsubscribe(ctx context.Context, userID string) error
	Notify(ctx context.Context, userID, notifType, title, body string)
	Broadcast(ctx context.Context, notifType, title, body string)
}

type notificationService struct {
	cfg    *config.PushConfig
	repo   *repository.Repository
	hub    *ws.Hub
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(cfg *config.PushConfig, repo *repository.Repository, hub *ws.Hub, logger *zap.Logger) NotificationService {
	return &notificationService{cfg: cfg, repo: repo, hub: hub, logger: logger}
}

// ────────────────────── Subscribe ──────────────────────

// Subscribe 保存/覆盖用户的 Web Push 订阅（每用户仅一份）
func (s *notificationService) Subscribe(ctx context.Context, userID string, req *dto.SubscribePushRequest) error {
	sub := &model.PushSubscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := s.repo.PushSubscription.Upsert(ctx, sub); err != nil {
		s.logger.Error("保存推送订阅失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Unsubscribe ──────────────────────

func (s *notificationService) Unsubscribe(ctx context.Context, userID string) error {
	if err := s.repo.PushSubscription.DeleteByUser(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		s.logger.Error("删除推送订阅失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Notify ──────────────────────

// Notify 向单个用户投递通知；投递失败只记日志，不影响主流程
func (s *notificationService) Notify(ctx context.Context, userID, notifType, title, body string) {
	msg := dto.NotificationMessage{
		Type:  notifType,
		Title: title,
		Body:  body,
		At:    time.Now().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("序列化通知失败", zap.Error(err))
		return
	}

	// 在线用户直接走 WebSocket
	if s.hub.Send(userID, string(payload)) {
		return
	}

	// 离线回落到 Web Push
	s.sendWebPush(ctx, userID, payload)
}

// ────────────────────── Broadcast ──────────────────────

// Broadcast 向所有用户投递（在线走 WebSocket，其余走 Web Push）
func (s *notificationService) Broadcast(ctx context.Context, notifType, title, body string) {
	msg := dto.NotificationMessage{
		Type:  notifType,
		Title: title,
		Body:  body,
		At:    time.Now().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("序列化通知失败", zap.Error(err))
		return
	}

	s.hub.Broadcast(string(payload))

	subs, err := s.repo.PushSubscription.ListAll(ctx)
	if err != nil {
		s.logger.Error("加载推送订阅列表失败", zap.Error(err))
		return
	}
	for i := range subs {
		s.pushToSubscription(ctx, &subs[i], payload)
	}
}

// ── 内部辅助方法 ──

func (s *notificationService) sendWebPush(ctx context.Context, userID string, payload []byte) {
	sub, err := s.repo.PushSubscription.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询推送订阅失败", zap.String("user_id", userID), zap.Error(err))
		}
		return
	}
	s.pushToSubscription(ctx, sub, payload)
}

func (s *notificationService) pushToSubscription(ctx context.Context, sub *model.PushSubscription, payload []byte) {
	if s.cfg.VAPIDPrivateKey == "" {
		s.logger.Debug("VAPID 未配置，跳过 Web Push", zap.String("user_id", sub.UserID))
		return
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		s.logger.Warn("Web Push 发送失败", zap.String("user_id", sub.UserID), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// 订阅失效（404/410）时清理，避免持续空推
	if resp.StatusCode == 404 || resp.StatusCode == 410 {
		if err := s.repo.PushSubscription.DeleteByUser(ctx, sub.UserID); err != nil {
			s.logger.Warn("清理失效订阅失败", zap.String("user_id", sub.UserID), zap.Error(err))
		}
	}
}
