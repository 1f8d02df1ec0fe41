package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
	"github.com/Aliwaris512/Apploye/pkg/redis"
	"github.com/Aliwaris512/Apploye/pkg/storage"
)

// ── 活动模块业务错误 ──

var (
	ErrSyncInProgress     = errors.New("该设备正在同步中")
	ErrInvalidSampleTime  = errors.New("采样时间格式无效")
	ErrScreenshotNotFound = errors.New("截图不存在")
	ErrQueueUnavailable   = errors.New("采样队列不可用")
)

// syncLockTTL 同步锁超时，持有方崩溃后自动释放
const syncLockTTL = 30 * time.Second

// queuedSample 进入 Redis 队列的采样（含入队时解析出的用户身份）
type queuedSample struct {
	UserID          string         `json:"user_id"`
	TimeEntryID     *string        `json:"time_entry_id,omitempty"`
	Type            string         `json:"type"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	DurationSeconds *int64         `json:"duration_seconds,omitempty"`
	Payload         map[string]any `json:"payload"`
	ActivityScore   *int           `json:"activity_score,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key"`
}

// ActivityService 活动采集与截图业务接口
type ActivityService interface {
	// EnqueueSample 采样先进 Redis 队列，由 Sync 批量落库
	EnqueueSample(ctx context.Context, userID string, req *dto.EnqueueSampleRequest) (int64, error)
	// Sync 排空设备队列并幂等落库
	Sync(ctx context.Context, req *dto.SyncRequest) (*dto.SyncResponse, error)
	// Track 绕过队列直接落库（低频、需要即时可查的采样）
	Track(ctx context.Context, userID string, req *dto.EnqueueSampleRequest) (*dto.ActivityRecordResponse, error)
	List(ctx context.Context, userID string, req *dto.ActivityQueryRequest) ([]dto.ActivityRecordResponse, error)
	UsageSummary(ctx context.Context, userID string, req *dto.ActivityQueryRequest) ([]dto.UsageSummaryResponse, error)
	SaveScreenshot(ctx context.Context, userID string, timeEntryID *string, filename string, data []byte) (*dto.ScreenshotResponse, error)
	ListScreenshots(ctx context.Context, userID string, req *dto.ActivityQueryRequest) ([]dto.ScreenshotResponse, error)
	// ResolveScreenshot 返回截图（或其缩略图）在磁盘上的绝对路径
	ResolveScreenshot(ctx context.Context, id string, thumbnail bool) (string, error)
}

type activityService struct {
	cfg      *config.Config
	repo     *repository.Repository
	rdb      *redis.Client
	store    *storage.ScreenshotStore
	notifier NotificationService
	logger   *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	store *storage.ScreenshotStore,
	notifier NotificationService,
	logger *zap.Logger,
) ActivityService {
	return &activityService{
		cfg:      cfg,
		repo:     repo,
		rdb:      rdb,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// ────────────────────── EnqueueSample ──────────────────────

func (s *activityService) EnqueueSample(ctx context.Context, userID string, req *dto.EnqueueSampleRequest) (int64, error) {
	if s.rdb == nil {
		return 0, ErrQueueUnavailable
	}

	sample, err := s.toQueuedSample(userID, req)
	if err != nil {
		return 0, err
	}

	payload, err := json.Marshal(sample)
	if err != nil {
		return 0, err
	}

	if err := s.rdb.EnqueueSample(ctx, req.DeviceID, payload); err != nil {
		s.logger.Error("采样入队失败", zap.String("device_id", req.DeviceID), zap.Error(err))
		return 0, err
	}

	return s.rdb.QueueLength(ctx, req.DeviceID)
}

// ────────────────────── Sync ──────────────────────

func (s *activityService) Sync(ctx context.Context, req *dto.SyncRequest) (*dto.SyncResponse, error) {
	if s.rdb == nil {
		return nil, ErrQueueUnavailable
	}

	// 设备级单飞锁：同一设备并发 sync 只放行一个
	ok, err := s.rdb.AcquireSyncLock(ctx, req.DeviceID, syncLockTTL)
	if err != nil {
		s.logger.Error("获取同步锁失败", zap.String("device_id", req.DeviceID), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := s.rdb.ReleaseSyncLock(context.WithoutCancel(ctx), req.DeviceID); err != nil {
			s.logger.Warn("释放同步锁失败", zap.String("device_id", req.DeviceID), zap.Error(err))
		}
	}()

	resp := &dto.SyncResponse{}
	for {
		raw, err := s.rdb.DequeueSample(ctx, req.DeviceID)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break // 队列已排空
			}
			s.logger.Error("出队失败", zap.String("device_id", req.DeviceID), zap.Error(err))
			return nil, err
		}

		var sample queuedSample
		if err := json.Unmarshal(raw, &sample); err != nil {
			// 坏样本丢弃并继续，避免卡死整个队列
			s.logger.Warn("丢弃无法解析的采样", zap.String("device_id", req.DeviceID), zap.Error(err))
			resp.Skipped++
			continue
		}

		record := sample.toRecord()
		inserted, err := s.repo.Activity.CreateIdempotent(ctx, record)
		if err != nil {
			s.logger.Error("采样落库失败",
				zap.String("idempotency_key", sample.IdempotencyKey), zap.Error(err))
			return nil, err
		}
		if inserted {
			resp.Synced++
			s.checkLongUsage(ctx, &sample)
		} else {
			resp.Skipped++
		}
	}

	pending, err := s.rdb.QueueLength(ctx, req.DeviceID)
	if err != nil {
		s.logger.Warn("查询队列长度失败", zap.String("device_id", req.DeviceID), zap.Error(err))
	}
	resp.Pending = int(pending)
	return resp, nil
}

// ────────────────────── Track ──────────────────────

func (s *activityService) Track(ctx context.Context, userID string, req *dto.EnqueueSampleRequest) (*dto.ActivityRecordResponse, error) {
	sample, err := s.toQueuedSample(userID, req)
	if err != nil {
		return nil, err
	}

	record := sample.toRecord()
	inserted, err := s.repo.Activity.CreateIdempotent(ctx, record)
	if err != nil {
		s.logger.Error("活动记录落库失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if inserted {
		s.checkLongUsage(ctx, sample)
	}

	return toActivityResponse(record), nil
}

// ────────────────────── List ──────────────────────

func (s *activityService) List(ctx context.Context, userID string, req *dto.ActivityQueryRequest) ([]dto.ActivityRecordResponse, error) {
	records, err := s.queryRange(ctx, userID, req, nil)
	if err != nil {
		return nil, err
	}

	result := make([]dto.ActivityRecordResponse, 0, len(records))
	for i := range records {
		if req.Type != "" && records[i].ActivityType != req.Type {
			continue
		}
		result = append(result, *toActivityResponse(&records[i]))
	}
	return result, nil
}

// ────────────────────── UsageSummary ──────────────────────

// UsageSummary 按应用聚合 app_usage 采样的时长占比
func (s *activityService) UsageSummary(ctx context.Context, userID string, req *dto.ActivityQueryRequest) ([]dto.UsageSummaryResponse, error) {
	records, err := s.queryRange(ctx, userID, req, []string{model.ActivityTypeAppUsage})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	var grand float64
	for i := range records {
		app, _ := records[i].Payload["app_name"].(string)
		if app == "" {
			app = "unknown"
		}
		var secs float64
		if records[i].DurationSeconds != nil {
			secs = float64(*records[i].DurationSeconds)
		}
		totals[app] += secs
		grand += secs
	}

	result := make([]dto.UsageSummaryResponse, 0, len(totals))
	for app, secs := range totals {
		item := dto.UsageSummaryResponse{AppName: app, TotalSeconds: secs}
		if grand > 0 {
			item.Percent = roundHours(secs / grand * 100)
		}
		result = append(result, item)
	}
	return result, nil
}

// ────────────────────── SaveScreenshot ──────────────────────

func (s *activityService) SaveScreenshot(ctx context.Context, userID string, timeEntryID *string, filename string, data []byte) (*dto.ScreenshotResponse, error) {
	relPath, err := s.store.Save(userID, filename, data)
	if err != nil {
		return nil, err
	}

	// 缩略图失败降级为原图，不阻断上传
	thumbRel, err := s.store.CreateThumbnail(relPath)
	if err != nil {
		s.logger.Warn("生成缩略图失败，使用原图", zap.String("path", relPath), zap.Error(err))
	}

	now := time.Now()
	record := &model.ActivityRecord{
		UserID:       userID,
		TimeEntryID:  timeEntryID,
		ActivityType: model.ActivityTypeScreenshot,
		StartTime:    now,
		Payload: model.JSONMap{
			"path":           relPath,
			"thumbnail_path": thumbRel,
		},
		IdempotencyKey: fmt.Sprintf("screenshot:%s:%d", userID, now.UnixNano()),
	}

	if err := s.repo.Activity.Create(ctx, record); err != nil {
		s.logger.Error("保存截图记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return s.toScreenshotResponse(record), nil
}

// ────────────────────── ListScreenshots ──────────────────────

func (s *activityService) ListScreenshots(ctx context.Context, userID string, req *dto.ActivityQueryRequest) ([]dto.ScreenshotResponse, error) {
	records, err := s.queryRange(ctx, userID, req, []string{model.ActivityTypeScreenshot})
	if err != nil {
		return nil, err
	}

	result := make([]dto.ScreenshotResponse, 0, len(records))
	for i := range records {
		result = append(result, *s.toScreenshotResponse(&records[i]))
	}
	return result, nil
}

// ────────────────────── ResolveScreenshot ──────────────────────

func (s *activityService) ResolveScreenshot(ctx context.Context, id string, thumbnail bool) (string, error) {
	record, err := s.repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrScreenshotNotFound
		}
		return "", err
	}
	if record.ActivityType != model.ActivityTypeScreenshot {
		return "", ErrScreenshotNotFound
	}

	key := "path"
	if thumbnail {
		key = "thumbnail_path"
	}
	relPath, _ := record.Payload[key].(string)
	if relPath == "" {
		return "", ErrScreenshotNotFound
	}

	abs, err := s.store.Resolve(relPath)
	if err != nil {
		return "", ErrScreenshotNotFound
	}
	return abs, nil
}

// ── 内部辅助方法 ──

func (s *activityService) toQueuedSample(userID string, req *dto.EnqueueSampleRequest) (*queuedSample, error) {
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, ErrInvalidSampleTime
	}

	sample := &queuedSample{
		UserID:          userID,
		TimeEntryID:     req.TimeEntryID,
		Type:            req.Type,
		StartTime:       start,
		DurationSeconds: req.DurationSeconds,
		Payload:         req.Payload,
		ActivityScore:   req.ActivityScore,
		IdempotencyKey:  req.IdempotencyKey,
	}

	if req.EndTime != nil {
		end, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			return nil, ErrInvalidSampleTime
		}
		sample.EndTime = &end
		if sample.DurationSeconds == nil {
			secs := int64(end.Sub(start).Seconds())
			sample.DurationSeconds = &secs
		}
	}

	return sample, nil
}

// checkLongUsage 单应用连续使用超阈值时推送健康提醒
func (s *activityService) checkLongUsage(ctx context.Context, sample *queuedSample) {
	if sample.Type != model.ActivityTypeAppUsage || sample.DurationSeconds == nil {
		return
	}
	threshold := s.cfg.Tracking.LongUsageThreshold
	if threshold <= 0 || time.Duration(*sample.DurationSeconds)*time.Second < threshold {
		return
	}

	app, _ := sample.Payload["app_name"].(string)
	s.notifier.Notify(ctx, sample.UserID, NotificationTypeLongUsage,
		"使用时长提醒",
		fmt.Sprintf("你已连续使用 %s 超过 %.0f 小时，建议休息一下", app, threshold.Hours()))
}

func (s *activityService) queryRange(ctx context.Context, userID string, req *dto.ActivityQueryRequest, types []string) ([]model.ActivityRecord, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	filters := &repository.ActivityFilters{
		UserIDs:   []string{userID},
		Types:     types,
		StartDate: &from,
		EndDate:   &to,
	}

	records, err := s.repo.Activity.ListForReport(ctx, filters)
	if err != nil {
		s.logger.Error("查询活动记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return records, nil
}

func (s *activityService) toScreenshotResponse(record *model.ActivityRecord) *dto.ScreenshotResponse {
	base := s.cfg.Server.BaseURL
	return &dto.ScreenshotResponse{
		ID:           record.ActivityID,
		UserID:       record.UserID,
		TimeEntryID:  record.TimeEntryID,
		URL:          fmt.Sprintf("%s/api/v1/screenshots/%s/file", base, record.ActivityID),
		ThumbnailURL: fmt.Sprintf("%s/api/v1/screenshots/%s/thumbnail", base, record.ActivityID),
		RecordedAt:   record.StartTime.Format(time.RFC3339),
	}
}

func (q *queuedSample) toRecord() *model.ActivityRecord {
	return &model.ActivityRecord{
		UserID:          q.UserID,
		TimeEntryID:     q.TimeEntryID,
		ActivityType:    q.Type,
		StartTime:       q.StartTime,
		EndTime:         q.EndTime,
		DurationSeconds: q.DurationSeconds,
		Payload:         model.JSONMap(q.Payload),
		ActivityScore:   q.ActivityScore,
		IdempotencyKey:  q.IdempotencyKey,
	}
}

func toActivityResponse(record *model.ActivityRecord) *dto.ActivityRecordResponse {
	resp := &dto.ActivityRecordResponse{
		ID:              record.ActivityID,
		UserID:          record.UserID,
		TimeEntryID:     record.TimeEntryID,
		Type:            record.ActivityType,
		StartTime:       record.StartTime.Format(time.RFC3339),
		DurationSeconds: record.DurationSeconds,
		Payload:         record.Payload,
		ActivityScore:   record.ActivityScore,
	}
	if record.EndTime != nil {
		t := record.EndTime.Format(time.RFC3339)
		resp.EndTime = &t
	}
	return resp
}
