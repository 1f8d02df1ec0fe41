package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEntries    = errors.New("该区间内无工时记录")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 工时单导出为 Excel (.xlsx)，便于线下对账
//   - 日历导出为 iCalendar (.ics)，可订阅到日历客户端
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportTimesheet 导出指定用户区间内的工时单为 Excel
	ExportTimesheet(ctx context.Context, userID string, req *dto.TimesheetRequest) (*bytes.Buffer, string, error)
	// ExportCalendar 将工时记录导出为 iCalendar 事件流
	ExportCalendar(ctx context.Context, userID string, req *dto.TimesheetRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ────────────────────── ExportTimesheet ──────────────────────

func (s *exportService) ExportTimesheet(ctx context.Context, userID string, req *dto.TimesheetRequest) (*bytes.Buffer, string, error) {
	entries, err := s.loadEntries(ctx, userID, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "工时单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 24)
	f.SetColWidth(sheetName, "D", "E", 10)
	f.SetColWidth(sheetName, "F", "G", 12)
	f.SetColWidth(sheetName, "H", "H", 36)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("工时单 %s ~ %s", req.StartDate, req.EndDate))
	f.MergeCell(sheetName, "A1", "H1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"日期", "项目", "任务", "开始", "结束", "时长(小时)", "计费", "备注"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheetName, cell(col, 2), h)
	}

	// 数据行
	row := 3
	var total float64
	for i := range entries {
		e := &entries[i]

		projectName, taskTitle := e.ProjectID, e.TaskID
		if e.Project != nil {
			projectName = e.Project.Name
		}
		if e.Task != nil {
			taskTitle = e.Task.Title
		}

		endTime := "-"
		if e.EndTime != nil {
			endTime = e.EndTime.Format("15:04")
		}
		billable := "否"
		if e.Billable {
			billable = "是"
		}

		f.SetCellValue(sheetName, cell("A", row), e.StartTime.Format("2006-01-02"))
		f.SetCellValue(sheetName, cell("B", row), projectName)
		f.SetCellValue(sheetName, cell("C", row), taskTitle)
		f.SetCellValue(sheetName, cell("D", row), e.StartTime.Format("15:04"))
		f.SetCellValue(sheetName, cell("E", row), endTime)
		if e.DurationHours != nil {
			f.SetCellValue(sheetName, cell("F", row), *e.DurationHours)
			total += *e.DurationHours
		}
		f.SetCellValue(sheetName, cell("G", row), billable)
		f.SetCellValue(sheetName, cell("H", row), e.Description)
		row++
	}

	// 合计行
	f.SetCellValue(sheetName, cell("E", row), "合计")
	f.SetCellValue(sheetName, cell("F", row), roundHours(total))

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("timesheet_%s_%s.xlsx", req.StartDate, req.EndDate)
	return buf, filename, nil
}

// ────────────────────── ExportCalendar ──────────────────────

func (s *exportService) ExportCalendar(ctx context.Context, userID string, req *dto.TimesheetRequest) (*bytes.Buffer, string, error) {
	entries, err := s.loadEntries(ctx, userID, req)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Apploye//Timesheet//CN")

	for i := range entries {
		e := &entries[i]
		if e.EndTime == nil {
			continue // 进行中的计时不导出
		}

		event := cal.AddEvent(fmt.Sprintf("%s@apploye", e.TimeEntryID))
		event.SetCreatedTime(e.CreatedAt)
		event.SetStartAt(e.StartTime)
		event.SetEndAt(*e.EndTime)

		summary := e.TaskID
		if e.Task != nil {
			summary = e.Task.Title
		}
		if e.Project != nil {
			summary = e.Project.Name + " / " + summary
		}
		event.SetSummary(summary)
		if e.Description != "" {
			event.SetDescription(e.Description)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("timesheet_%s_%s.ics", req.StartDate, req.EndDate)
	return buf, filename, nil
}

// ── 内部辅助方法 ──

func (s *exportService) loadEntries(ctx context.Context, userID string, req *dto.TimesheetRequest) ([]model.TimeEntry, error) {
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.TimeEntry.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询工时记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrExportNoEntries
	}
	return entries, nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
