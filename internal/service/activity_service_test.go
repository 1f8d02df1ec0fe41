package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/pkg/storage"
)

// ── 测试辅助 ──

func setupTestActivityService(t *testing.T) (ActivityService, *mocks, *mockNotifier) {
	t.Helper()
	cfg := testConfig()
	cfg.Tracking.LongUsageThreshold = 2 * time.Hour
	cfg.Upload = config.UploadConfig{
		Dir:               t.TempDir(),
		MaxSizeMB:         5,
		AllowedExtensions: []string{".png", ".jpg"},
		ThumbnailWidth:    320,
	}

	repo, m := newMockRepository()
	notifier := &mockNotifier{}
	store := storage.NewScreenshotStore(&cfg.Upload)

	svc := NewActivityService(cfg, repo, nil, store, notifier, zap.NewNop())
	return svc, m, notifier
}

func sampleRequest(key string) *dto.EnqueueSampleRequest {
	secs := int64(600)
	return &dto.EnqueueSampleRequest{
		DeviceID:        "device-1",
		Type:            model.ActivityTypeAppUsage,
		StartTime:       "2026-03-02T09:00:00Z",
		DurationSeconds: &secs,
		Payload:         map[string]any{"app_name": "vscode"},
		IdempotencyKey:  key,
	}
}

// ── Track 测试 ──

func TestTrack_Idempotent(t *testing.T) {
	svc, m, _ := setupTestActivityService(t)

	first, err := svc.Track(context.Background(), "user-1", sampleRequest("sample-key-0001"))
	if err != nil {
		t.Fatalf("Track 应成功: %v", err)
	}
	if first.Type != model.ActivityTypeAppUsage {
		t.Errorf("期望类型=app_usage，实际=%s", first.Type)
	}

	// 相同幂等键重复提交不落第二条
	if _, err := svc.Track(context.Background(), "user-1", sampleRequest("sample-key-0001")); err != nil {
		t.Fatalf("重复 Track 应成功（幂等跳过）: %v", err)
	}
	if len(m.activity.records) != 1 {
		t.Errorf("幂等键重复时应只落库 1 条，实际=%d", len(m.activity.records))
	}
}

func TestTrack_InvalidStartTime(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	req := sampleRequest("sample-key-0002")
	req.StartTime = "2026-03-02 09:00:00"

	_, err := svc.Track(context.Background(), "user-1", req)
	if !errors.Is(err, ErrInvalidSampleTime) {
		t.Errorf("期望 ErrInvalidSampleTime，实际: %v", err)
	}
}

func TestTrack_DurationDerivedFromEndTime(t *testing.T) {
	svc, m, _ := setupTestActivityService(t)

	req := sampleRequest("sample-key-0003")
	req.DurationSeconds = nil
	end := "2026-03-02T09:30:00Z"
	req.EndTime = &end

	resp, err := svc.Track(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("Track 应成功: %v", err)
	}
	if resp.DurationSeconds == nil || *resp.DurationSeconds != 1800 {
		t.Errorf("期望由起止时间推导出 1800 秒，实际=%v", resp.DurationSeconds)
	}
	if len(m.activity.records) != 1 {
		t.Fatalf("应落库 1 条，实际=%d", len(m.activity.records))
	}
}

func TestTrack_LongUsageNotification(t *testing.T) {
	svc, _, notifier := setupTestActivityService(t)

	// 3 小时应用使用超过 2 小时阈值
	req := sampleRequest("sample-key-0004")
	threeHours := int64(3 * 3600)
	req.DurationSeconds = &threeHours

	if _, err := svc.Track(context.Background(), "user-1", req); err != nil {
		t.Fatalf("Track 应成功: %v", err)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != "user-1:"+NotificationTypeLongUsage {
		t.Errorf("超阈值使用应触发提醒，实际=%v", notifier.notified)
	}

	// 幂等跳过不重复提醒
	if _, err := svc.Track(context.Background(), "user-1", req); err != nil {
		t.Fatalf("重复 Track 应成功: %v", err)
	}
	if len(notifier.notified) != 1 {
		t.Errorf("幂等跳过不应再次提醒，实际提醒次数=%d", len(notifier.notified))
	}
}

func TestTrack_ShortUsageNoNotification(t *testing.T) {
	svc, _, notifier := setupTestActivityService(t)

	if _, err := svc.Track(context.Background(), "user-1", sampleRequest("sample-key-0005")); err != nil {
		t.Fatalf("Track 应成功: %v", err)
	}
	if len(notifier.notified) != 0 {
		t.Errorf("未超阈值不应提醒，实际=%v", notifier.notified)
	}
}

// ── 队列降级测试 ──

func TestEnqueueSample_QueueUnavailable(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	_, err := svc.EnqueueSample(context.Background(), "user-1", sampleRequest("sample-key-0006"))
	if !errors.Is(err, ErrQueueUnavailable) {
		t.Errorf("Redis 缺席时期望 ErrQueueUnavailable，实际: %v", err)
	}
}

func TestSync_QueueUnavailable(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	_, err := svc.Sync(context.Background(), &dto.SyncRequest{DeviceID: "device-1"})
	if !errors.Is(err, ErrQueueUnavailable) {
		t.Errorf("Redis 缺席时期望 ErrQueueUnavailable，实际: %v", err)
	}
}

// ── 查询测试 ──

func TestListActivities_TypeFilter(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	if _, err := svc.Track(context.Background(), "user-1", sampleRequest("sample-key-0007")); err != nil {
		t.Fatalf("Track 失败: %v", err)
	}
	idle := sampleRequest("sample-key-0008")
	idle.Type = model.ActivityTypeIdleTime
	if _, err := svc.Track(context.Background(), "user-1", idle); err != nil {
		t.Fatalf("Track 失败: %v", err)
	}

	result, err := svc.List(context.Background(), "user-1", &dto.ActivityQueryRequest{
		Type:      model.ActivityTypeIdleTime,
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(result) != 1 || result[0].Type != model.ActivityTypeIdleTime {
		t.Errorf("期望只命中 idle_time 记录，实际=%d 条", len(result))
	}
}

func TestUsageSummary_Percentages(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	vscode := sampleRequest("sample-key-0009")
	threeHundred := int64(300)
	vscode.DurationSeconds = &threeHundred

	chrome := sampleRequest("sample-key-0010")
	hundred := int64(100)
	chrome.DurationSeconds = &hundred
	chrome.Payload = map[string]any{"app_name": "chrome"}

	// 无 app_name 的采样归入 unknown
	anon := sampleRequest("sample-key-0011")
	anon.DurationSeconds = &hundred
	anon.Payload = map[string]any{}

	for _, req := range []*dto.EnqueueSampleRequest{vscode, chrome, anon} {
		if _, err := svc.Track(context.Background(), "user-1", req); err != nil {
			t.Fatalf("Track 失败: %v", err)
		}
	}

	result, err := svc.UsageSummary(context.Background(), "user-1", &dto.ActivityQueryRequest{
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("UsageSummary 应成功: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("期望 3 个应用，实际=%d", len(result))
	}

	percents := make(map[string]float64)
	for _, item := range result {
		percents[item.AppName] = item.Percent
	}
	if percents["vscode"] != 60 {
		t.Errorf("期望 vscode 占比 60%%，实际=%v", percents["vscode"])
	}
	if percents["chrome"] != 20 {
		t.Errorf("期望 chrome 占比 20%%，实际=%v", percents["chrome"])
	}
	if percents["unknown"] != 20 {
		t.Errorf("期望 unknown 占比 20%%，实际=%v", percents["unknown"])
	}
}

// ── 截图测试 ──

func TestSaveScreenshot_And_Resolve(t *testing.T) {
	svc, m, _ := setupTestActivityService(t)

	resp, err := svc.SaveScreenshot(context.Background(), "user-1", nil, "capture.png", []byte("not-a-real-png"))
	if err != nil {
		t.Fatalf("SaveScreenshot 应成功: %v", err)
	}
	if resp.URL == "" || resp.ThumbnailURL == "" {
		t.Error("响应应包含文件与缩略图 URL")
	}
	if len(m.activity.records) != 1 {
		t.Fatalf("应落库 1 条截图记录，实际=%d", len(m.activity.records))
	}
	if m.activity.records[0].ActivityType != model.ActivityTypeScreenshot {
		t.Errorf("期望记录类型=screenshot，实际=%s", m.activity.records[0].ActivityType)
	}

	// 原图可解析出磁盘路径；非图片数据缩略图降级为原图
	abs, err := svc.ResolveScreenshot(context.Background(), resp.ID, false)
	if err != nil {
		t.Fatalf("ResolveScreenshot 应成功: %v", err)
	}
	if abs == "" {
		t.Error("解析出的路径不应为空")
	}
}

func TestSaveScreenshot_ExtensionNotAllowed(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	_, err := svc.SaveScreenshot(context.Background(), "user-1", nil, "malware.exe", []byte("data"))
	if !errors.Is(err, storage.ErrExtensionNotAllowed) {
		t.Errorf("期望 ErrExtensionNotAllowed，实际: %v", err)
	}
}

func TestResolveScreenshot_NotFound(t *testing.T) {
	svc, _, _ := setupTestActivityService(t)

	if _, err := svc.ResolveScreenshot(context.Background(), "act-nonexistent", false); !errors.Is(err, ErrScreenshotNotFound) {
		t.Errorf("期望 ErrScreenshotNotFound，实际: %v", err)
	}
}

func TestResolveScreenshot_TypeGuard(t *testing.T) {
	svc, m, _ := setupTestActivityService(t)

	// 非截图类型的活动记录不可当截图取
	if _, err := svc.Track(context.Background(), "user-1", sampleRequest("sample-key-0012")); err != nil {
		t.Fatalf("Track 失败: %v", err)
	}
	id := m.activity.records[0].ActivityID

	if _, err := svc.ResolveScreenshot(context.Background(), id, false); !errors.Is(err, ErrScreenshotNotFound) {
		t.Errorf("期望 ErrScreenshotNotFound，实际: %v", err)
	}
}
