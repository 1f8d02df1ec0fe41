package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/authz"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
	"github.com/Aliwaris512/Apploye/pkg/storage"
)

// ── 报表模块业务错误 ──

var (
	ErrReportNotFound  = errors.New("报表不存在")
	ErrReportNotReady  = errors.New("报表尚未生成完成")
	ErrReportForbidden = errors.New("无权访问该报表")
)

// generateTimeout 单份报表生成的时间上限
const generateTimeout = 5 * time.Minute

// ReportService 报表业务接口
// 创建即返回 pending，生成在后台 goroutine 中完成
type ReportService interface {
	Create(ctx context.Context, req *dto.CreateReportRequest, creatorID string) (*dto.ReportResponse, error)
	GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.ReportResponse, error)
	List(ctx context.Context, req *dto.ListReportsRequest, callerID, callerRole string) ([]dto.ReportResponse, int64, error)
	// ResolveFile 返回已完成报表文件的绝对路径
	ResolveFile(ctx context.Context, id, callerID, callerRole string) (string, error)
}

type reportService struct {
	cfg      *config.Config
	repo     *repository.Repository
	store    *storage.ReportStore
	notifier NotificationService
	logger   *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(
	cfg *config.Config,
	repo *repository.Repository,
	store *storage.ReportStore,
	notifier NotificationService,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		cfg:      cfg,
		repo:     repo,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *reportService) Create(ctx context.Context, req *dto.CreateReportRequest, creatorID string) (*dto.ReportResponse, error) {
	if _, _, err := parseDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	params := model.JSONMap{
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
	}
	if req.UserID != nil {
		params["user_id"] = *req.UserID
	}
	if req.ProjectID != nil {
		params["project_id"] = *req.ProjectID
	}

	report := &model.Report{
		ReportType: req.Type,
		Status:     model.ReportStatusPending,
		Params:     params,
		CreatedBy:  creatorID,
	}

	if err := s.repo.Report.Create(ctx, report); err != nil {
		s.logger.Error("创建报表任务失败", zap.Error(err))
		return nil, err
	}

	// 生成与请求生命周期解耦，请求取消不中断生成
	go s.generate(context.WithoutCancel(ctx), report.ReportID)

	return s.toReportResponse(report), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *reportService) GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.ReportResponse, error) {
	report, err := s.loadAuthorized(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}
	return s.toReportResponse(report), nil
}

// ────────────────────── List ──────────────────────

func (s *reportService) List(ctx context.Context, req *dto.ListReportsRequest, callerID, callerRole string) ([]dto.ReportResponse, int64, error) {
	// 非管理员只能看到自己创建的报表
	createdBy := callerID
	if authz.Can(callerRole, authz.ActionReportAll) {
		createdBy = ""
	}

	reports, total, err := s.repo.Report.List(ctx, createdBy, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出报表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		if req.Status != "" && reports[i].Status != req.Status {
			continue
		}
		result = append(result, *s.toReportResponse(&reports[i]))
	}
	return result, total, nil
}

// ────────────────────── ResolveFile ──────────────────────

func (s *reportService) ResolveFile(ctx context.Context, id, callerID, callerRole string) (string, error) {
	report, err := s.loadAuthorized(ctx, id, callerID, callerRole)
	if err != nil {
		return "", err
	}
	if report.Status != model.ReportStatusCompleted || report.FilePath == nil {
		return "", ErrReportNotReady
	}
	return s.store.Resolve(*report.FilePath)
}

// ── 报表生成 ──

// generate 后台生成报表：pending → processing → completed | failed
func (s *reportService) generate(ctx context.Context, reportID string) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	report, err := s.repo.Report.GetByID(ctx, reportID)
	if err != nil {
		s.logger.Error("加载报表任务失败", zap.String("report_id", reportID), zap.Error(err))
		return
	}

	report.Status = model.ReportStatusProcessing
	if err := s.repo.Report.Update(ctx, report); err != nil {
		s.logger.Error("更新报表状态失败", zap.String("report_id", reportID), zap.Error(err))
		return
	}

	filename := fmt.Sprintf("report_%s.csv", reportID)
	err = s.writeCSV(ctx, report, s.store.Path(filename))
	if err != nil {
		// 失败时不保留半成品文件
		_ = os.Remove(s.store.Path(filename))
		msg := err.Error()
		report.Status = model.ReportStatusFailed
		report.FilePath = nil
		report.Error = &msg
		s.logger.Error("报表生成失败", zap.String("report_id", reportID), zap.Error(err))
	} else {
		report.Status = model.ReportStatusCompleted
		report.FilePath = &filename
		report.Error = nil
	}

	if err := s.repo.Report.Update(ctx, report); err != nil {
		s.logger.Error("保存报表结果失败", zap.String("report_id", reportID), zap.Error(err))
		return
	}

	if report.Status == model.ReportStatusCompleted {
		s.notifier.Notify(ctx, report.CreatedBy, NotificationTypeReportReady,
			"报表已生成", fmt.Sprintf("%s 报表已生成，可以下载了", report.ReportType))
	}
}

func (s *reportService) writeCSV(ctx context.Context, report *model.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报表文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	switch report.ReportType {
	case model.ReportTypeTimeEntries:
		err = s.writeTimeEntriesCSV(ctx, report, w)
	case model.ReportTypeActivity:
		err = s.writeActivityCSV(ctx, report, w, nil)
	case model.ReportTypeScreenshots:
		err = s.writeActivityCSV(ctx, report, w, []string{model.ActivityTypeScreenshot})
	default:
		err = fmt.Errorf("未知报表类型: %s", report.ReportType)
	}
	if err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func (s *reportService) writeTimeEntriesCSV(ctx context.Context, report *model.Report, w *csv.Writer) error {
	filters := &repository.TimeEntryFilters{}
	s.applyParams(report.Params, &filters.UserIDs, &filters.ProjectIDs, &filters.StartDate, &filters.EndDate)

	entries, err := s.repo.TimeEntry.ListForReport(ctx, filters)
	if err != nil {
		return err
	}

	if err := w.Write([]string{"user_id", "project", "task", "start_time", "end_time", "duration_hours", "billable", "status", "description"}); err != nil {
		return err
	}

	for i := range entries {
		e := &entries[i]
		endTime, duration := "", ""
		if e.EndTime != nil {
			endTime = e.EndTime.Format(time.RFC3339)
		}
		if e.DurationHours != nil {
			duration = strconv.FormatFloat(*e.DurationHours, 'f', 2, 64)
		}
		projectName, taskTitle := e.ProjectID, e.TaskID
		if e.Project != nil {
			projectName = e.Project.Name
		}
		if e.Task != nil {
			taskTitle = e.Task.Title
		}
		row := []string{
			e.UserID, projectName, taskTitle,
			e.StartTime.Format(time.RFC3339), endTime, duration,
			strconv.FormatBool(e.Billable), e.Status, e.Description,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *reportService) writeActivityCSV(ctx context.Context, report *model.Report, w *csv.Writer, types []string) error {
	filters := &repository.ActivityFilters{Types: types}
	var projectIDs []string
	s.applyParams(report.Params, &filters.UserIDs, &projectIDs, &filters.StartDate, &filters.EndDate)

	records, err := s.repo.Activity.ListForReport(ctx, filters)
	if err != nil {
		return err
	}

	if err := w.Write([]string{"user_id", "type", "start_time", "duration_seconds", "activity_score", "payload"}); err != nil {
		return err
	}

	for i := range records {
		r := &records[i]
		duration, score := "", ""
		if r.DurationSeconds != nil {
			duration = strconv.FormatInt(*r.DurationSeconds, 10)
		}
		if r.ActivityScore != nil {
			score = strconv.Itoa(*r.ActivityScore)
		}
		payload, _ := r.Payload.Value()
		payloadStr, _ := payload.([]byte)
		row := []string{
			r.UserID, r.ActivityType,
			r.StartTime.Format(time.RFC3339), duration, score, string(payloadStr),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *reportService) applyParams(params model.JSONMap, userIDs, projectIDs *[]string, start, end **time.Time) {
	if v, ok := params["user_id"].(string); ok && v != "" {
		*userIDs = []string{v}
	}
	if v, ok := params["project_id"].(string); ok && v != "" {
		*projectIDs = []string{v}
	}
	if v, ok := params["start_date"].(string); ok {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			*start = &t
		}
	}
	if v, ok := params["end_date"].(string); ok {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to := t.AddDate(0, 0, 1)
			*end = &to
		}
	}
}

func (s *reportService) loadAuthorized(ctx context.Context, id, callerID, callerRole string) (*model.Report, error) {
	report, err := s.repo.Report.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if report.CreatedBy != callerID && !authz.Can(callerRole, authz.ActionReportAll) {
		return nil, ErrReportForbidden
	}
	return report, nil
}

func (s *reportService) toReportResponse(report *model.Report) *dto.ReportResponse {
	resp := &dto.ReportResponse{
		ID:        report.ReportID,
		Type:      report.ReportType,
		Status:    report.Status,
		Error:     report.Error,
		CreatedBy: report.CreatedBy,
		CreatedAt: report.CreatedAt.Format(time.RFC3339),
	}
	if report.Status == model.ReportStatusCompleted && report.FilePath != nil {
		url := fmt.Sprintf("%s/api/v1/reports/%s/download", s.cfg.Server.BaseURL, report.ReportID)
		resp.DownloadURL = &url
	}
	return resp
}
