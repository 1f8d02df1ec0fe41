package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/config"
)

// Reminder 周期性提醒器
// 按配置的间隔向全体用户广播周报提醒
type Reminder struct {
	interval time.Duration
	notifier NotificationService
	logger   *zap.Logger
}

// NewReminder 创建提醒器
func NewReminder(cfg *config.TrackingConfig, notifier NotificationService, logger *zap.Logger) *Reminder {
	return &Reminder{
		interval: cfg.ReminderInterval,
		notifier: notifier,
		logger:   logger,
	}
}

// Run 阻塞运行提醒循环，ctx 取消后退出
// 由 main 以独立 goroutine 启动
func (r *Reminder) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("提醒周期未配置，提醒器不启动")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("周期提醒器已启动", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("周期提醒器已停止")
			return
		case <-ticker.C:
			r.notifier.Broadcast(ctx, NotificationTypeWeeklyReport,
				"周报提醒", "新的工作周已开始，记得查看上周的工时与活动汇总")
		}
	}
}
