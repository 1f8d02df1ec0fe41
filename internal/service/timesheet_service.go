package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
)

// ── 工时模块业务错误 ──

var (
	ErrTimerAlreadyRunning = errors.New("已有进行中的计时")
	ErrNoRunningTimer      = errors.New("没有进行中的计时")
	ErrNotProjectMember    = errors.New("不是该项目成员，无法计时")
	ErrInvalidDateRange    = errors.New("日期区间无效")
	ErrNoHourlyRate        = errors.New("用户未配置时薪")
)

// TimesheetService 工时与薪酬业务接口
type TimesheetService interface {
	StartTimer(ctx context.Context, userID string, req *dto.StartTimerRequest) (*dto.TimeEntryResponse, error)
	StopTimer(ctx context.Context, userID string, req *dto.StopTimerRequest) (*dto.TimeEntryResponse, error)
	GetRunning(ctx context.Context, userID string) (*dto.TimeEntryResponse, error)
	GetTimesheet(ctx context.Context, userID string, req *dto.TimesheetRequest) (*dto.TimesheetResponse, error)
	GetAttendance(ctx context.Context, userID string, req *dto.TimesheetRequest) ([]dto.AttendanceResponse, error)
	CalculatePayroll(ctx context.Context, req *dto.CalculatePayrollRequest) (*dto.PayrollResponse, error)
	PostPayroll(ctx context.Context, req *dto.PostPayrollRequest) (*dto.PayrollResponse, error)
	ListPayroll(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.PayrollResponse, int64, error)
}

type timesheetService struct {
	cfg    *config.TrackingConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimesheetService 创建 TimesheetService 实例
func NewTimesheetService(cfg *config.TrackingConfig, repo *repository.Repository, logger *zap.Logger) TimesheetService {
	return &timesheetService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── StartTimer ──────────────────────

func (s *timesheetService) StartTimer(ctx context.Context, userID string, req *dto.StartTimerRequest) (*dto.TimeEntryResponse, error) {
	task, err := s.repo.Task.GetByID(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	// 只能在自己参与的项目内计时
	if _, err := s.repo.ProjectMember.GetByProjectAndUser(ctx, task.ProjectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotProjectMember
		}
		return nil, err
	}

	billable := true
	if req.Billable != nil {
		billable = *req.Billable
	}

	entry := &model.TimeEntry{
		UserID:      userID,
		TaskID:      task.TaskID,
		ProjectID:   task.ProjectID,
		StartTime:   time.Now(),
		Description: req.Description,
		Billable:    billable,
		Status:      model.TimeEntryStatusRunning,
	}

	// 并发双开由部分唯一索引兜底：同一用户第二条进行中记录会触发唯一冲突
	if err := s.repo.TimeEntry.CreateOpen(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTimerAlreadyRunning
		}
		s.logger.Error("创建工时记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return toTimeEntryResponse(entry), nil
}

// ────────────────────── StopTimer ──────────────────────

func (s *timesheetService) StopTimer(ctx context.Context, userID string, req *dto.StopTimerRequest) (*dto.TimeEntryResponse, error) {
	entry, err := s.repo.TimeEntry.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRunningTimer
		}
		s.logger.Error("查询进行中计时失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	now := time.Now()
	hours := roundHours(now.Sub(entry.StartTime).Hours())

	entry.EndTime = &now
	entry.DurationHours = &hours
	entry.Status = model.TimeEntryStatusCompleted
	if req != nil && req.Description != nil {
		entry.Description = *req.Description
	}

	if err := s.repo.TimeEntry.Update(ctx, entry); err != nil {
		s.logger.Error("停止计时失败", zap.String("time_entry_id", entry.TimeEntryID), zap.Error(err))
		return nil, err
	}

	return toTimeEntryResponse(entry), nil
}

// ────────────────────── GetRunning ──────────────────────

func (s *timesheetService) GetRunning(ctx context.Context, userID string) (*dto.TimeEntryResponse, error) {
	entry, err := s.repo.TimeEntry.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRunningTimer
		}
		return nil, err
	}
	return toTimeEntryResponse(entry), nil
}

// ────────────────────── GetTimesheet ──────────────────────

func (s *timesheetService) GetTimesheet(ctx context.Context, userID string, req *dto.TimesheetRequest) (*dto.TimesheetResponse, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.TimeEntry.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询工时单失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := &dto.TimesheetResponse{
		Entries:   make([]dto.TimeEntryResponse, 0, len(entries)),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	for i := range entries {
		resp.Entries = append(resp.Entries, *toTimeEntryResponse(&entries[i]))
		if entries[i].DurationHours != nil {
			resp.TotalHours += *entries[i].DurationHours
		}
	}
	resp.TotalHours = roundHours(resp.TotalHours)
	return resp, nil
}

// ────────────────────── GetAttendance ──────────────────────

// GetAttendance 由已完成工时按自然日聚合派生出勤状态，不读独立出勤表
func (s *timesheetService) GetAttendance(ctx context.Context, userID string, req *dto.TimesheetRequest) ([]dto.AttendanceResponse, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.TimeEntry.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询出勤失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	// 按日累计已完成时长
	daily := make(map[string]float64)
	for i := range entries {
		if entries[i].Status != model.TimeEntryStatusCompleted || entries[i].DurationHours == nil {
			continue
		}
		day := entries[i].StartTime.Format("2006-01-02")
		daily[day] += *entries[i].DurationHours
	}

	// 区间内每一天都产出一条记录，无工时记为 absent
	var result []dto.AttendanceResponse
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		hours := roundHours(daily[day])
		result = append(result, dto.AttendanceResponse{
			Date:   day,
			Hours:  hours,
			Status: s.attendanceStatus(hours),
		})
	}
	return result, nil
}

// ────────────────────── CalculatePayroll ──────────────────────

// CalculatePayroll 试算：只返回结果，不落库
func (s *timesheetService) CalculatePayroll(ctx context.Context, req *dto.CalculatePayrollRequest) (*dto.PayrollResponse, error) {
	period, err := s.buildPayrollPeriod(ctx, req)
	if err != nil {
		return nil, err
	}
	return toPayrollResponse(period), nil
}

// ────────────────────── PostPayroll ──────────────────────

// PostPayroll 入账：计算并持久化薪酬周期
func (s *timesheetService) PostPayroll(ctx context.Context, req *dto.PostPayrollRequest) (*dto.PayrollResponse, error) {
	period, err := s.buildPayrollPeriod(ctx, &req.CalculatePayrollRequest)
	if err != nil {
		return nil, err
	}

	if req.Status != "" {
		period.Status = req.Status
	}

	if err := s.repo.Payroll.Create(ctx, period); err != nil {
		s.logger.Error("写入薪酬周期失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}
	return toPayrollResponse(period), nil
}

// ────────────────────── ListPayroll ──────────────────────

func (s *timesheetService) ListPayroll(ctx context.Context, userID string, page *dto.PaginationRequest) ([]dto.PayrollResponse, int64, error) {
	periods, total, err := s.repo.Payroll.ListByUser(ctx, userID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("列出薪酬周期失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.PayrollResponse, 0, len(periods))
	for i := range periods {
		result = append(result, *toPayrollResponse(&periods[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *timesheetService) buildPayrollPeriod(ctx context.Context, req *dto.CalculatePayrollRequest) (*model.PayrollPeriod, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	rate, err := s.resolveRate(ctx, user)
	if err != nil {
		return nil, err
	}

	hours, err := s.repo.TimeEntry.SumCompletedHours(ctx, req.UserID, from, to)
	if err != nil {
		s.logger.Error("汇总工时失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	hours = roundHours(hours)
	return &model.PayrollPeriod{
		UserID:     req.UserID,
		StartDate:  from,
		EndDate:    to.AddDate(0, 0, -1), // 存闭区间
		HourlyRate: rate,
		TotalHours: hours,
		TotalPay:   math.Round(hours*rate*100) / 100,
		Status:     model.PayrollStatusPending,
	}, nil
}

// resolveRate 费率解析优先级：最近的项目级费率覆盖 > 用户全局时薪
func (s *timesheetService) resolveRate(ctx context.Context, user *model.User) (float64, error) {
	override, err := s.repo.ProjectMember.LatestRateForUser(ctx, user.UserID)
	if err != nil {
		return 0, err
	}
	if override != nil {
		return *override, nil
	}
	if user.HourlyRate != nil {
		return *user.HourlyRate, nil
	}
	return 0, ErrNoHourlyRate
}

func (s *timesheetService) attendanceStatus(hours float64) string {
	switch {
	case hours >= s.cfg.PresentThreshold:
		return model.AttendanceStatusPresent
	case hours >= s.cfg.HalfDayThreshold:
		return model.AttendanceStatusHalfDay
	default:
		return model.AttendanceStatusAbsent
	}
}

// parseDateRange 解析 [start, end] 闭区间为 [from, to) 半开区间
func parseDateRange(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	endDay, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	to := endDay.AddDate(0, 0, 1)
	if !from.Before(to) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return from, to, nil
}

// roundHours 时长统一保留两位小数
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func toTimeEntryResponse(entry *model.TimeEntry) *dto.TimeEntryResponse {
	resp := &dto.TimeEntryResponse{
		ID:            entry.TimeEntryID,
		UserID:        entry.UserID,
		TaskID:        entry.TaskID,
		ProjectID:     entry.ProjectID,
		StartTime:     entry.StartTime.Format(time.RFC3339),
		DurationHours: entry.DurationHours,
		Description:   entry.Description,
		Billable:      entry.Billable,
		Status:        entry.Status,
	}
	if entry.EndTime != nil {
		t := entry.EndTime.Format(time.RFC3339)
		resp.EndTime = &t
	}
	if entry.Task != nil {
		resp.TaskTitle = entry.Task.Title
	}
	if entry.Project != nil {
		resp.ProjectName = entry.Project.Name
	}
	return resp
}

func toPayrollResponse(period *model.PayrollPeriod) *dto.PayrollResponse {
	return &dto.PayrollResponse{
		ID:         period.PayrollPeriodID,
		UserID:     period.UserID,
		StartDate:  period.StartDate.Format("2006-01-02"),
		EndDate:    period.EndDate.Format("2006-01-02"),
		HourlyRate: period.HourlyRate,
		TotalHours: period.TotalHours,
		TotalPay:   period.TotalPay,
		Status:     period.Status,
	}
}
