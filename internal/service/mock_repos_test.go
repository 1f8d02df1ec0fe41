package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
	apperrors "github.com/Aliwaris512/Apploye/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if filters != nil {
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.Keyword != "" &&
				!strings.Contains(u.Name, filters.Keyword) &&
				!strings.Contains(u.Email, filters.Keyword) {
				continue
			}
			if filters.Active != nil && u.IsActive != *filters.Active {
				continue
			}
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	projects map[string]*model.Project
	members  *mockProjectMemberRepo // canView 依赖成员预加载
}

func newMockProjectRepo(members *mockProjectMemberRepo) *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*model.Project), members: members}
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ProjectID == "" {
		project.ProjectID = fmt.Sprintf("proj-%d", len(m.projects)+1)
	}
	if project.Version == 0 {
		project.Version = 1
	}
	m.projects[project.ProjectID] = project
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// 模拟 Preload("Members")
	cp := *p
	cp.Members = nil
	for _, mem := range m.members.list {
		if mem.ProjectID == id {
			cp.Members = append(cp.Members, mem)
		}
	}
	return &cp, nil
}

func (m *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	cur, ok := m.projects[project.ProjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != project.Version {
		return apperrors.ErrOptimisticLock
	}
	project.Version++
	m.projects[project.ProjectID] = project
	return nil
}

func (m *mockProjectRepo) Delete(_ context.Context, id string) error {
	delete(m.projects, id)
	var remaining []model.ProjectMember
	for _, mem := range m.members.list {
		if mem.ProjectID != id {
			remaining = append(remaining, mem)
		}
	}
	m.members.list = remaining
	return nil
}

func (m *mockProjectRepo) List(_ context.Context, offset, limit int) ([]model.Project, int64, error) {
	var all []model.Project
	for _, p := range m.projects {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ProjectID < all[j].ProjectID })
	return paginateProjects(all, offset, limit)
}

func (m *mockProjectRepo) ListVisible(_ context.Context, userID string, offset, limit int) ([]model.Project, int64, error) {
	memberOf := make(map[string]bool)
	for _, mem := range m.members.list {
		if mem.UserID == userID {
			memberOf[mem.ProjectID] = true
		}
	}
	var all []model.Project
	for _, p := range m.projects {
		if p.CreatedBy == userID || memberOf[p.ProjectID] {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ProjectID < all[j].ProjectID })
	return paginateProjects(all, offset, limit)
}

func paginateProjects(all []model.Project, offset, limit int) ([]model.Project, int64, error) {
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock ProjectMemberRepository ──

type mockProjectMemberRepo struct {
	list []model.ProjectMember
}

func newMockProjectMemberRepo() *mockProjectMemberRepo {
	return &mockProjectMemberRepo{}
}

func (m *mockProjectMemberRepo) Add(_ context.Context, member *model.ProjectMember) error {
	for _, mem := range m.list {
		if mem.ProjectID == member.ProjectID && mem.UserID == member.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if member.ProjectMemberID == "" {
		member.ProjectMemberID = fmt.Sprintf("pm-%d", len(m.list)+1)
	}
	m.list = append(m.list, *member)
	return nil
}

func (m *mockProjectMemberRepo) Remove(_ context.Context, projectID, userID string) error {
	for i, mem := range m.list {
		if mem.ProjectID == projectID && mem.UserID == userID {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockProjectMemberRepo) GetByProjectAndUser(_ context.Context, projectID, userID string) (*model.ProjectMember, error) {
	for i, mem := range m.list {
		if mem.ProjectID == projectID && mem.UserID == userID {
			return &m.list[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectMemberRepo) ListByProject(_ context.Context, projectID string) ([]model.ProjectMember, error) {
	var result []model.ProjectMember
	for _, mem := range m.list {
		if mem.ProjectID == projectID {
			result = append(result, mem)
		}
	}
	return result, nil
}

func (m *mockProjectMemberRepo) LatestRateForUser(_ context.Context, userID string) (*float64, error) {
	var latest *model.ProjectMember
	for i, mem := range m.list {
		if mem.UserID != userID || mem.HourlyRate == nil {
			continue
		}
		if latest == nil || mem.JoinedAt.After(latest.JoinedAt) {
			latest = &m.list[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.HourlyRate, nil
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	tasks map[string]*model.Task
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[string]*model.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, task *model.Task) error {
	if task.TaskID == "" {
		task.TaskID = fmt.Sprintf("task-%d", len(m.tasks)+1)
	}
	if task.Version == 0 {
		task.Version = 1
	}
	m.tasks[task.TaskID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	if t, ok := m.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) Update(_ context.Context, task *model.Task) error {
	cur, ok := m.tasks[task.TaskID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != task.Version {
		return apperrors.ErrOptimisticLock
	}
	task.Version++
	m.tasks[task.TaskID] = task
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskRepo) ListByProject(_ context.Context, projectID string, filters *repository.TaskListFilters, offset, limit int) ([]model.Task, int64, error) {
	var all []model.Task
	for _, t := range m.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if filters != nil {
			if filters.Status != "" && t.Status != filters.Status {
				continue
			}
			if filters.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != filters.AssigneeID) {
				continue
			}
		}
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TaskID < all[j].TaskID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock TimeEntryRepository ──

type mockTimeEntryRepo struct {
	entries   []model.TimeEntry
	idCounter int
}

func newMockTimeEntryRepo() *mockTimeEntryRepo {
	return &mockTimeEntryRepo{}
}

func (m *mockTimeEntryRepo) CreateOpen(_ context.Context, entry *model.TimeEntry) error {
	// 模拟部分唯一索引：同一用户至多一条进行中记录
	for _, e := range m.entries {
		if e.UserID == entry.UserID && e.EndTime == nil {
			return gorm.ErrDuplicatedKey
		}
	}
	m.idCounter++
	entry.TimeEntryID = fmt.Sprintf("te-%d", m.idCounter)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockTimeEntryRepo) GetOpenByUser(_ context.Context, userID string) (*model.TimeEntry, error) {
	for i, e := range m.entries {
		if e.UserID == userID && e.EndTime == nil {
			return &m.entries[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimeEntryRepo) GetOpenByID(_ context.Context, userID, entryID string) (*model.TimeEntry, error) {
	for i, e := range m.entries {
		if e.TimeEntryID == entryID && e.UserID == userID && e.EndTime == nil {
			return &m.entries[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimeEntryRepo) Update(_ context.Context, entry *model.TimeEntry) error {
	for i, e := range m.entries {
		if e.TimeEntryID == entry.TimeEntryID {
			m.entries[i] = *entry
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockTimeEntryRepo) ListByUserRange(_ context.Context, userID string, from, to time.Time) ([]model.TimeEntry, error) {
	var result []model.TimeEntry
	for _, e := range m.entries {
		if e.UserID == userID && !e.StartTime.Before(from) && e.StartTime.Before(to) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *mockTimeEntryRepo) SumCompletedHours(_ context.Context, userID string, from, to time.Time) (float64, error) {
	var total float64
	for _, e := range m.entries {
		if e.UserID != userID || e.Status != model.TimeEntryStatusCompleted || e.DurationHours == nil {
			continue
		}
		if !e.StartTime.Before(from) && e.StartTime.Before(to) {
			total += *e.DurationHours
		}
	}
	return total, nil
}

func (m *mockTimeEntryRepo) ListForReport(_ context.Context, filters *repository.TimeEntryFilters) ([]model.TimeEntry, error) {
	var result []model.TimeEntry
	for _, e := range m.entries {
		if filters != nil {
			if len(filters.UserIDs) > 0 && !containsStr(filters.UserIDs, e.UserID) {
				continue
			}
			if len(filters.ProjectIDs) > 0 && !containsStr(filters.ProjectIDs, e.ProjectID) {
				continue
			}
			if filters.StartDate != nil && e.StartTime.Before(*filters.StartDate) {
				continue
			}
			if filters.EndDate != nil && !e.StartTime.Before(*filters.EndDate) {
				continue
			}
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── Mock ActivityRepository ──

type mockActivityRepo struct {
	records   []model.ActivityRecord
	idemSeen  map[string]bool
	idCounter int
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{idemSeen: make(map[string]bool)}
}

func (m *mockActivityRepo) Create(_ context.Context, record *model.ActivityRecord) error {
	m.idCounter++
	record.ActivityID = fmt.Sprintf("act-%d", m.idCounter)
	m.records = append(m.records, *record)
	return nil
}

func (m *mockActivityRepo) CreateIdempotent(_ context.Context, record *model.ActivityRecord) (bool, error) {
	if m.idemSeen[record.IdempotencyKey] {
		return false, nil
	}
	m.idemSeen[record.IdempotencyKey] = true
	return true, m.Create(context.Background(), record)
}

func (m *mockActivityRepo) GetByID(_ context.Context, id string) (*model.ActivityRecord, error) {
	for i, r := range m.records {
		if r.ActivityID == id {
			return &m.records[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityRepo) ListByUserRange(_ context.Context, userID string, from, to time.Time) ([]model.ActivityRecord, error) {
	var result []model.ActivityRecord
	for _, r := range m.records {
		if r.UserID == userID && !r.StartTime.Before(from) && r.StartTime.Before(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockActivityRepo) ListForReport(_ context.Context, filters *repository.ActivityFilters) ([]model.ActivityRecord, error) {
	var result []model.ActivityRecord
	for _, r := range m.records {
		if filters != nil {
			if len(filters.UserIDs) > 0 && !containsStr(filters.UserIDs, r.UserID) {
				continue
			}
			if len(filters.Types) > 0 && !containsStr(filters.Types, r.ActivityType) {
				continue
			}
			if filters.StartDate != nil && r.StartTime.Before(*filters.StartDate) {
				continue
			}
			if filters.EndDate != nil && !r.StartTime.Before(*filters.EndDate) {
				continue
			}
		}
		result = append(result, r)
	}
	return result, nil
}

// ── Mock ReportRepository ──

type mockReportRepo struct {
	reports map[string]*model.Report
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: make(map[string]*model.Report)}
}

func (m *mockReportRepo) Create(_ context.Context, report *model.Report) error {
	if report.ReportID == "" {
		report.ReportID = fmt.Sprintf("report-%d", len(m.reports)+1)
	}
	m.reports[report.ReportID] = report
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id string) (*model.Report, error) {
	if r, ok := m.reports[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReportRepo) Update(_ context.Context, report *model.Report) error {
	m.reports[report.ReportID] = report
	return nil
}

func (m *mockReportRepo) List(_ context.Context, createdBy string, offset, limit int) ([]model.Report, int64, error) {
	var all []model.Report
	for _, r := range m.reports {
		if createdBy != "" && r.CreatedBy != createdBy {
			continue
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ReportID < all[j].ReportID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock PushSubscriptionRepository ──

type mockPushSubscriptionRepo struct {
	subs map[string]*model.PushSubscription // key: user_id
}

func newMockPushSubscriptionRepo() *mockPushSubscriptionRepo {
	return &mockPushSubscriptionRepo{subs: make(map[string]*model.PushSubscription)}
}

func (m *mockPushSubscriptionRepo) Upsert(_ context.Context, sub *model.PushSubscription) error {
	if sub.PushSubscriptionID == "" {
		sub.PushSubscriptionID = "sub-" + sub.UserID
	}
	m.subs[sub.UserID] = sub
	return nil
}

func (m *mockPushSubscriptionRepo) GetByUser(_ context.Context, userID string) (*model.PushSubscription, error) {
	if s, ok := m.subs[userID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPushSubscriptionRepo) DeleteByUser(_ context.Context, userID string) error {
	delete(m.subs, userID)
	return nil
}

func (m *mockPushSubscriptionRepo) ListAll(_ context.Context) ([]model.PushSubscription, error) {
	var result []model.PushSubscription
	for _, s := range m.subs {
		result = append(result, *s)
	}
	return result, nil
}

// ── Mock PayrollRepository ──

type mockPayrollRepo struct {
	periods []model.PayrollPeriod
}

func newMockPayrollRepo() *mockPayrollRepo {
	return &mockPayrollRepo{}
}

func (m *mockPayrollRepo) Create(_ context.Context, period *model.PayrollPeriod) error {
	if period.PayrollPeriodID == "" {
		period.PayrollPeriodID = fmt.Sprintf("pp-%d", len(m.periods)+1)
	}
	m.periods = append(m.periods, *period)
	return nil
}

func (m *mockPayrollRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.PayrollPeriod, int64, error) {
	var all []model.PayrollPeriod
	for _, p := range m.periods {
		if p.UserID == userID {
			all = append(all, p)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── 通用测试装置 ──

// newMockRepository 组装全 mock 的 Repository 聚合
func newMockRepository() (*repository.Repository, *mocks) {
	memberRepo := newMockProjectMemberRepo()
	m := &mocks{
		user:          newMockUserRepo(),
		project:       newMockProjectRepo(memberRepo),
		projectMember: memberRepo,
		task:          newMockTaskRepo(),
		timeEntry:     newMockTimeEntryRepo(),
		activity:      newMockActivityRepo(),
		report:        newMockReportRepo(),
		pushSub:       newMockPushSubscriptionRepo(),
		payroll:       newMockPayrollRepo(),
	}
	repo := &repository.Repository{
		User:             m.user,
		Project:          m.project,
		ProjectMember:    m.projectMember,
		Task:             m.task,
		TimeEntry:        m.timeEntry,
		Activity:         m.activity,
		Report:           m.report,
		PushSubscription: m.pushSub,
		Payroll:          m.payroll,
	}
	return repo, m
}

type mocks struct {
	user          *mockUserRepo
	project       *mockProjectRepo
	projectMember *mockProjectMemberRepo
	task          *mockTaskRepo
	timeEntry     *mockTimeEntryRepo
	activity      *mockActivityRepo
	report        *mockReportRepo
	pushSub       *mockPushSubscriptionRepo
	payroll       *mockPayrollRepo
}

// mockNotifier 记录通知调用的 NotificationService 假实现
type mockNotifier struct {
	notified  []string // "userID:type"
	broadcast []string // type
}

func (m *mockNotifier) Subscribe(context.Context, string, *dto.SubscribePushRequest) error {
	return nil
}
func (m *mockNotifier) Unsubscribe(context.Context, string) error { return nil }
func (m *mockNotifier) Notify(_ context.Context, userID, notifType, _, _ string) {
	m.notified = append(m.notified, userID+":"+notifType)
}
func (m *mockNotifier) Broadcast(_ context.Context, notifType, _, _ string) {
	m.broadcast = append(m.broadcast, notifType)
}
