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
)

// ── 测试辅助 ──

func setupTestTimesheetService() (TimesheetService, *mocks) {
	cfg := &config.TrackingConfig{
		PresentThreshold: 6,
		HalfDayThreshold: 3,
	}
	repo, m := newMockRepository()
	return NewTimesheetService(cfg, repo, zap.NewNop()), m
}

// seedTimesheetFixture 准备一个用户、项目、任务和成员关系
func seedTimesheetFixture(m *mocks) (*model.User, *model.Project, *model.Task) {
	user := &model.User{UserID: "user-1", Name: "员工甲", Email: "a@test.com", Role: model.RoleEmployee, IsActive: true}
	m.user.users[user.UserID] = user

	project := &model.Project{ProjectID: "proj-1", Name: "内部系统", CreatedBy: "user-admin"}
	project.Version = 1
	m.project.projects[project.ProjectID] = project

	m.projectMember.list = append(m.projectMember.list, model.ProjectMember{
		ProjectMemberID: "pm-1",
		ProjectID:       project.ProjectID,
		UserID:          user.UserID,
		Role:            model.ProjectRoleMember,
		JoinedAt:        time.Now(),
	})

	task := &model.Task{TaskID: "task-1", ProjectID: project.ProjectID, Title: "开发任务", Status: model.TaskStatusTodo}
	task.Version = 1
	m.task.tasks[task.TaskID] = task

	return user, project, task
}

// seedCompletedEntry 写入一条已完成工时
func seedCompletedEntry(m *mocks, userID string, start time.Time, hours float64) {
	end := start.Add(time.Duration(hours * float64(time.Hour)))
	m.timeEntry.idCounter++
	m.timeEntry.entries = append(m.timeEntry.entries, model.TimeEntry{
		TimeEntryID:   "te-seed-" + start.Format("20060102-150405"),
		UserID:        userID,
		TaskID:        "task-1",
		ProjectID:     "proj-1",
		StartTime:     start,
		EndTime:       &end,
		DurationHours: &hours,
		Status:        model.TimeEntryStatusCompleted,
	})
}

// ── 计时测试 ──

func TestStartTimer_Success(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, task := seedTimesheetFixture(m)

	entry, err := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{
		TaskID:      task.TaskID,
		Description: "写接口",
	})
	if err != nil {
		t.Fatalf("StartTimer 应成功: %v", err)
	}
	if entry.Status != model.TimeEntryStatusRunning {
		t.Errorf("期望状态=running，实际=%s", entry.Status)
	}
	if !entry.Billable {
		t.Error("未指定 billable 时应默认计费")
	}
	if entry.ProjectID != task.ProjectID {
		t.Errorf("工时应归属任务所在项目，实际=%s", entry.ProjectID)
	}
}

func TestStartTimer_NotProjectMember(t *testing.T) {
	svc, m := setupTestTimesheetService()
	_, _, task := seedTimesheetFixture(m)

	outsider := &model.User{UserID: "user-2", Email: "b@test.com", Role: model.RoleEmployee, IsActive: true}
	m.user.users[outsider.UserID] = outsider

	_, err := svc.StartTimer(context.Background(), outsider.UserID, &dto.StartTimerRequest{TaskID: task.TaskID})
	if !errors.Is(err, ErrNotProjectMember) {
		t.Errorf("期望 ErrNotProjectMember，实际: %v", err)
	}
}

func TestStartTimer_TaskNotFound(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	_, err := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{TaskID: "task-nonexistent"})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("期望 ErrTaskNotFound，实际: %v", err)
	}
}

func TestStartTimer_AlreadyRunning(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, task := seedTimesheetFixture(m)

	if _, err := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{TaskID: task.TaskID}); err != nil {
		t.Fatalf("首次 StartTimer 失败: %v", err)
	}

	// 同一用户不能并行开第二个计时
	_, err := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{TaskID: task.TaskID})
	if !errors.Is(err, ErrTimerAlreadyRunning) {
		t.Errorf("期望 ErrTimerAlreadyRunning，实际: %v", err)
	}
}

func TestStopTimer_Success(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, task := seedTimesheetFixture(m)

	if _, err := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{TaskID: task.TaskID}); err != nil {
		t.Fatalf("StartTimer 失败: %v", err)
	}

	desc := "收工"
	entry, err := svc.StopTimer(context.Background(), user.UserID, &dto.StopTimerRequest{Description: &desc})
	if err != nil {
		t.Fatalf("StopTimer 应成功: %v", err)
	}
	if entry.Status != model.TimeEntryStatusCompleted {
		t.Errorf("期望状态=completed，实际=%s", entry.Status)
	}
	if entry.EndTime == nil || entry.DurationHours == nil {
		t.Fatal("停止后应有 EndTime 和 DurationHours")
	}
	if entry.Description != desc {
		t.Errorf("期望描述被覆盖为 %q，实际=%q", desc, entry.Description)
	}

	// 停止后再次开计时应放行
	if _, err := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{TaskID: task.TaskID}); err != nil {
		t.Errorf("停止后再次 StartTimer 应成功: %v", err)
	}
}

func TestStopTimer_NoRunningTimer(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	_, err := svc.StopTimer(context.Background(), user.UserID, nil)
	if !errors.Is(err, ErrNoRunningTimer) {
		t.Errorf("期望 ErrNoRunningTimer，实际: %v", err)
	}
}

func TestGetRunning(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, task := seedTimesheetFixture(m)

	if _, err := svc.GetRunning(context.Background(), user.UserID); !errors.Is(err, ErrNoRunningTimer) {
		t.Errorf("无计时时期望 ErrNoRunningTimer，实际: %v", err)
	}

	started, _ := svc.StartTimer(context.Background(), user.UserID, &dto.StartTimerRequest{TaskID: task.TaskID})

	running, err := svc.GetRunning(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("GetRunning 应成功: %v", err)
	}
	if running.ID != started.ID {
		t.Errorf("期望返回进行中记录 %s，实际=%s", started.ID, running.ID)
	}
}

// ── 工时单测试 ──

func TestGetTimesheet_TotalHours(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	seedCompletedEntry(m, user.UserID, day, 3.5)
	seedCompletedEntry(m, user.UserID, day.Add(5*time.Hour), 2.25)

	resp, err := svc.GetTimesheet(context.Background(), user.UserID, &dto.TimesheetRequest{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-02",
	})
	if err != nil {
		t.Fatalf("GetTimesheet 应成功: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("期望 2 条记录，实际=%d", len(resp.Entries))
	}
	if resp.TotalHours != 5.75 {
		t.Errorf("期望 TotalHours=5.75，实际=%v", resp.TotalHours)
	}
}

func TestGetTimesheet_InvalidRange(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	cases := []struct {
		name  string
		start string
		end   string
	}{
		{"bad format", "2026/03/02", "2026-03-03"},
		{"end before start", "2026-03-10", "2026-03-02"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetTimesheet(context.Background(), user.UserID, &dto.TimesheetRequest{
				StartDate: tc.start,
				EndDate:   tc.end,
			})
			if !errors.Is(err, ErrInvalidDateRange) {
				t.Errorf("期望 ErrInvalidDateRange，实际: %v", err)
			}
		})
	}
}

// ── 出勤测试 ──

func TestGetAttendance_Thresholds(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	// 3 月 2 日 8h → present；3 日 4h → half_day；4 日 1h → absent；5 日无记录 → absent
	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 8)
	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), 4)
	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), 1)

	result, err := svc.GetAttendance(context.Background(), user.UserID, &dto.TimesheetRequest{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-05",
	})
	if err != nil {
		t.Fatalf("GetAttendance 应成功: %v", err)
	}
	if len(result) != 4 {
		t.Fatalf("区间内每天都应有记录，期望 4 条，实际=%d", len(result))
	}

	want := map[string]string{
		"2026-03-02": model.AttendanceStatusPresent,
		"2026-03-03": model.AttendanceStatusHalfDay,
		"2026-03-04": model.AttendanceStatusAbsent,
		"2026-03-05": model.AttendanceStatusAbsent,
	}
	for _, day := range result {
		if day.Status != want[day.Date] {
			t.Errorf("%s 期望状态=%s，实际=%s（时长=%v）", day.Date, want[day.Date], day.Status, day.Hours)
		}
	}
}

func TestGetAttendance_IgnoresRunningEntries(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	// 进行中记录不计入出勤
	m.timeEntry.entries = append(m.timeEntry.entries, model.TimeEntry{
		TimeEntryID: "te-open",
		UserID:      user.UserID,
		TaskID:      "task-1",
		ProjectID:   "proj-1",
		StartTime:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Status:      model.TimeEntryStatusRunning,
	})

	result, err := svc.GetAttendance(context.Background(), user.UserID, &dto.TimesheetRequest{
		StartDate: "2026-03-02",
		EndDate:   "2026-03-02",
	})
	if err != nil {
		t.Fatalf("GetAttendance 应成功: %v", err)
	}
	if result[0].Status != model.AttendanceStatusAbsent {
		t.Errorf("只有进行中记录时应记为 absent，实际=%s", result[0].Status)
	}
}

// ── 薪酬测试 ──

func TestCalculatePayroll_UserRate(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)
	rate := 50.0
	user.HourlyRate = &rate

	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 8)
	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), 2.5)

	resp, err := svc.CalculatePayroll(context.Background(), &dto.CalculatePayrollRequest{
		UserID:    user.UserID,
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("CalculatePayroll 应成功: %v", err)
	}
	if resp.TotalHours != 10.5 {
		t.Errorf("期望 TotalHours=10.5，实际=%v", resp.TotalHours)
	}
	if resp.TotalPay != 525 {
		t.Errorf("期望 TotalPay=525，实际=%v", resp.TotalPay)
	}
	if resp.EndDate != "2026-03-31" {
		t.Errorf("期望闭区间 EndDate=2026-03-31，实际=%s", resp.EndDate)
	}

	// 试算不落库
	if len(m.payroll.periods) != 0 {
		t.Errorf("试算不应写入薪酬周期，实际条数=%d", len(m.payroll.periods))
	}
}

func TestCalculatePayroll_ProjectRateOverride(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)
	userRate := 50.0
	user.HourlyRate = &userRate

	// 项目级费率覆盖全局时薪
	override := 80.0
	m.projectMember.list[0].HourlyRate = &override

	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 10)

	resp, err := svc.CalculatePayroll(context.Background(), &dto.CalculatePayrollRequest{
		UserID:    user.UserID,
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if err != nil {
		t.Fatalf("CalculatePayroll 应成功: %v", err)
	}
	if resp.HourlyRate != 80 {
		t.Errorf("期望采用项目费率 80，实际=%v", resp.HourlyRate)
	}
	if resp.TotalPay != 800 {
		t.Errorf("期望 TotalPay=800，实际=%v", resp.TotalPay)
	}
}

func TestCalculatePayroll_NoHourlyRate(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	_, err := svc.CalculatePayroll(context.Background(), &dto.CalculatePayrollRequest{
		UserID:    user.UserID,
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if !errors.Is(err, ErrNoHourlyRate) {
		t.Errorf("期望 ErrNoHourlyRate，实际: %v", err)
	}
}

func TestCalculatePayroll_UserNotFound(t *testing.T) {
	svc, _ := setupTestTimesheetService()

	_, err := svc.CalculatePayroll(context.Background(), &dto.CalculatePayrollRequest{
		UserID:    "user-nonexistent",
		StartDate: "2026-03-01",
		EndDate:   "2026-03-31",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestPostPayroll_Persists(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)
	rate := 40.0
	user.HourlyRate = &rate

	seedCompletedEntry(m, user.UserID, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 6)

	resp, err := svc.PostPayroll(context.Background(), &dto.PostPayrollRequest{
		CalculatePayrollRequest: dto.CalculatePayrollRequest{
			UserID:    user.UserID,
			StartDate: "2026-03-01",
			EndDate:   "2026-03-31",
		},
		Status: model.PayrollStatusApproved,
	})
	if err != nil {
		t.Fatalf("PostPayroll 应成功: %v", err)
	}
	if resp.Status != model.PayrollStatusApproved {
		t.Errorf("期望状态=approved，实际=%s", resp.Status)
	}
	if len(m.payroll.periods) != 1 {
		t.Fatalf("入账应写入薪酬周期，实际条数=%d", len(m.payroll.periods))
	}
	if m.payroll.periods[0].TotalPay != 240 {
		t.Errorf("期望落库 TotalPay=240，实际=%v", m.payroll.periods[0].TotalPay)
	}
}

func TestListPayroll(t *testing.T) {
	svc, m := setupTestTimesheetService()
	user, _, _ := seedTimesheetFixture(m)

	m.payroll.periods = append(m.payroll.periods,
		model.PayrollPeriod{PayrollPeriodID: "pp-1", UserID: user.UserID, Status: model.PayrollStatusPending},
		model.PayrollPeriod{PayrollPeriodID: "pp-2", UserID: user.UserID, Status: model.PayrollStatusPaid},
		model.PayrollPeriod{PayrollPeriodID: "pp-3", UserID: "user-other", Status: model.PayrollStatusPending},
	)

	result, total, err := svc.ListPayroll(context.Background(), user.UserID, &dto.PaginationRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListPayroll 应成功: %v", err)
	}
	if total != 2 || len(result) != 2 {
		t.Errorf("期望本人 2 条记录，实际 total=%d len=%d", total, len(result))
	}
}
