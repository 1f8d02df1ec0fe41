package service

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/ws"
)

// ── 测试辅助 ──

// fakeConn 记录写入消息的 ws.Conn 假实现
type fakeConn struct {
	messages []string
	closed   bool
}

func (c *fakeConn) WriteText(msg string) error {
	c.messages = append(c.messages, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func setupTestNotificationService() (NotificationService, *mocks, *ws.Hub) {
	// VAPID 留空：离线回落路径在测试里只验证不 panic、不误投
	cfg := &config.PushConfig{}
	repo, m := newMockRepository()
	hub := ws.NewHub()
	return NewNotificationService(cfg, repo, hub, zap.NewNop()), m, hub
}

func subscribeRequest(endpoint string) *dto.SubscribePushRequest {
	req := &dto.SubscribePushRequest{Endpoint: endpoint}
	req.Keys.P256dh = "p256dh-key"
	req.Keys.Auth = "auth-secret"
	return req
}

// ── 订阅测试 ──

func TestSubscribe_UpsertOverwrites(t *testing.T) {
	svc, m, _ := setupTestNotificationService()

	if err := svc.Subscribe(context.Background(), "user-1", subscribeRequest("https://push.example.com/a")); err != nil {
		t.Fatalf("Subscribe 应成功: %v", err)
	}
	// 同一用户再次订阅覆盖旧端点
	if err := svc.Subscribe(context.Background(), "user-1", subscribeRequest("https://push.example.com/b")); err != nil {
		t.Fatalf("重复 Subscribe 应成功: %v", err)
	}

	sub, err := m.pushSub.GetByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("订阅应存在: %v", err)
	}
	if sub.Endpoint != "https://push.example.com/b" {
		t.Errorf("期望端点被覆盖为最新值，实际=%s", sub.Endpoint)
	}
	if len(m.pushSub.subs) != 1 {
		t.Errorf("每用户应只保留一份订阅，实际=%d", len(m.pushSub.subs))
	}
}

func TestUnsubscribe(t *testing.T) {
	svc, m, _ := setupTestNotificationService()

	if err := svc.Subscribe(context.Background(), "user-1", subscribeRequest("https://push.example.com/a")); err != nil {
		t.Fatalf("Subscribe 失败: %v", err)
	}
	if err := svc.Unsubscribe(context.Background(), "user-1"); err != nil {
		t.Fatalf("Unsubscribe 应成功: %v", err)
	}
	if _, err := m.pushSub.GetByUser(context.Background(), "user-1"); err == nil {
		t.Error("取消订阅后不应再查到记录")
	}
}

// ── 投递测试 ──

func TestNotify_OnlineViaWebSocket(t *testing.T) {
	svc, _, hub := setupTestNotificationService()

	conn := &fakeConn{}
	hub.Register("user-1", conn)

	svc.Notify(context.Background(), "user-1", NotificationTypeDirect, "标题", "正文")

	if len(conn.messages) != 1 {
		t.Fatalf("在线用户应收到 1 条 WebSocket 消息，实际=%d", len(conn.messages))
	}

	var msg dto.NotificationMessage
	if err := json.Unmarshal([]byte(conn.messages[0]), &msg); err != nil {
		t.Fatalf("消息应为合法 JSON: %v", err)
	}
	if msg.Type != NotificationTypeDirect || msg.Title != "标题" || msg.Body != "正文" {
		t.Errorf("消息内容不符: %+v", msg)
	}
	if msg.At == "" {
		t.Error("消息应带投递时间")
	}
}

func TestNotify_OfflineNoVAPID(t *testing.T) {
	svc, _, _ := setupTestNotificationService()

	// 用户离线且 VAPID 未配置：静默跳过，不 panic
	svc.Notify(context.Background(), "user-offline", NotificationTypeDirect, "标题", "正文")
}

func TestBroadcast_ReachesAllOnline(t *testing.T) {
	svc, _, hub := setupTestNotificationService()

	first := &fakeConn{}
	second := &fakeConn{}
	hub.Register("user-1", first)
	hub.Register("user-2", second)

	svc.Broadcast(context.Background(), NotificationTypeWeeklyReport, "周报", "别忘了填周报")

	if len(first.messages) != 1 || len(second.messages) != 1 {
		t.Errorf("广播应到达所有在线用户，实际 user-1=%d user-2=%d",
			len(first.messages), len(second.messages))
	}
}

func TestHub_ReRegisterReplacesConn(t *testing.T) {
	svc, _, hub := setupTestNotificationService()

	old := &fakeConn{}
	hub.Register("user-1", old)

	// 同一用户重连后旧连接被关闭，消息只走新连接
	fresh := &fakeConn{}
	hub.Register("user-1", fresh)

	if !old.closed {
		t.Error("重连后旧连接应被关闭")
	}

	svc.Notify(context.Background(), "user-1", NotificationTypeDirect, "标题", "正文")
	if len(old.messages) != 0 || len(fresh.messages) != 1 {
		t.Errorf("消息应只投递到新连接，实际 old=%d fresh=%d", len(old.messages), len(fresh.messages))
	}
}
