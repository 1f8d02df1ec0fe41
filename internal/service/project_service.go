package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aliwaris512/Apploye/internal/authz"
	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
	"github.com/Aliwaris512/Apploye/internal/repository"
	apperrors "github.com/Aliwaris512/Apploye/pkg/errors"
)

// ── 项目模块业务错误 ──

var (
	ErrProjectNotFound  = errors.New("项目不存在")
	ErrMemberExists     = errors.New("用户已是项目成员")
	ErrMemberNotFound   = errors.New("项目成员不存在")
	ErrVersionConflict  = errors.New("数据已被他人修改，请刷新后重试")
	ErrProjectForbidden = errors.New("无权访问该项目")
)

// ProjectService 项目业务接口
type ProjectService interface {
	Create(ctx context.Context, req *dto.CreateProjectRequest, creatorID string) (*dto.ProjectResponse, error)
	GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.ProjectResponse, error)
	List(ctx context.Context, req *dto.ListProjectsRequest, callerID, callerRole string) ([]dto.ProjectResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, projectID string, req *dto.AddMemberRequest) (*dto.ProjectMemberResponse, error)
	RemoveMember(ctx context.Context, projectID, userID string) error
	ListMembers(ctx context.Context, projectID string) ([]dto.ProjectMemberResponse, error)
}

type projectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProjectService 创建 ProjectService 实例
func NewProjectService(repo *repository.Repository, logger *zap.Logger) ProjectService {
	return &projectService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *projectService) Create(ctx context.Context, req *dto.CreateProjectRequest, creatorID string) (*dto.ProjectResponse, error) {
	status := req.Status
	if status == "" {
		status = model.ProjectStatusPlanning
	}

	if req.ClientID != nil {
		if _, err := s.repo.User.GetByID(ctx, *req.ClientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	project := &model.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		Budget:      req.Budget,
		ClientID:    req.ClientID,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Project.Create(ctx, project); err != nil {
		s.logger.Error("创建项目失败", zap.Error(err))
		return nil, err
	}

	// 创建者自动成为项目内管理员
	member := &model.ProjectMember{
		ProjectID: project.ProjectID,
		UserID:    creatorID,
		Role:      model.ProjectRoleAdmin,
		JoinedAt:  time.Now(),
	}
	if err := s.repo.ProjectMember.Add(ctx, member); err != nil {
		s.logger.Error("添加创建者为项目成员失败",
			zap.String("project_id", project.ProjectID), zap.Error(err))
		return nil, err
	}

	return s.toProjectResponse(project, nil), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *projectService) GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 员工与客户只能查看自己参与/关联的项目
	if !authz.Can(callerRole, authz.ActionProjectManage) && !s.canView(project, callerID) {
		return nil, ErrProjectForbidden
	}

	return s.toProjectResponse(project, project.Members), nil
}

// ────────────────────── List ──────────────────────

func (s *projectService) List(ctx context.Context, req *dto.ListProjectsRequest, callerID, callerRole string) ([]dto.ProjectResponse, int64, error) {
	var (
		projects []model.Project
		total    int64
		err      error
	)

	// 管理角色看全量，其他角色只看可见集
	if authz.Can(callerRole, authz.ActionProjectManage) {
		projects, total, err = s.repo.Project.List(ctx, req.GetOffset(), req.GetPageSize())
	} else {
		projects, total, err = s.repo.Project.ListVisible(ctx, callerID, req.GetOffset(), req.GetPageSize())
	}
	if err != nil {
		s.logger.Error("列出项目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		if req.Status != "" && projects[i].Status != req.Status {
			total--
			continue
		}
		result = append(result, *s.toProjectResponse(&projects[i], nil))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *projectService) Update(ctx context.Context, id string, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	project, err := s.repo.Project.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	// 以请求携带的版本做乐观锁比对
	project.Version = req.Version

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.Budget != nil {
		project.Budget = req.Budget
	}
	if req.ClientID != nil {
		project.ClientID = req.ClientID
	}

	if err := s.repo.Project.Update(ctx, project); err != nil {
		if errors.Is(err, apperrors.ErrOptimisticLock) {
			return nil, ErrVersionConflict
		}
		s.logger.Error("更新项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toProjectResponse(project, nil), nil
}

// ────────────────────── Delete ──────────────────────

func (s *projectService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Project.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return err
	}

	if err := s.repo.Project.Delete(ctx, id); err != nil {
		s.logger.Error("删除项目失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AddMember ──────────────────────

func (s *projectService) AddMember(ctx context.Context, projectID string, req *dto.AddMemberRequest) (*dto.ProjectMemberResponse, error) {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.ProjectRoleMember
	}

	member := &model.ProjectMember{
		ProjectID:  projectID,
		UserID:     req.UserID,
		Role:       role,
		HourlyRate: req.HourlyRate,
		JoinedAt:   time.Now(),
	}

	if err := s.repo.ProjectMember.Add(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrMemberExists
		}
		s.logger.Error("添加项目成员失败",
			zap.String("project_id", projectID), zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	member.User = user
	resp := toMemberResponse(member)
	return &resp, nil
}

// ────────────────────── RemoveMember ──────────────────────

func (s *projectService) RemoveMember(ctx context.Context, projectID, userID string) error {
	if err := s.repo.ProjectMember.Remove(ctx, projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		s.logger.Error("移除项目成员失败",
			zap.String("project_id", projectID), zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ListMembers ──────────────────────

func (s *projectService) ListMembers(ctx context.Context, projectID string) ([]dto.ProjectMemberResponse, error) {
	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	members, err := s.repo.ProjectMember.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error("列出项目成员失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ProjectMemberResponse, 0, len(members))
	for i := range members {
		result = append(result, toMemberResponse(&members[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

// canView 用户为项目创建者、成员或关联客户时可见
func (s *projectService) canView(project *model.Project, userID string) bool {
	if project.CreatedBy == userID {
		return true
	}
	if project.ClientID != nil && *project.ClientID == userID {
		return true
	}
	for i := range project.Members {
		if project.Members[i].UserID == userID {
			return true
		}
	}
	return false
}

func (s *projectService) toProjectResponse(project *model.Project, members []model.ProjectMember) *dto.ProjectResponse {
	resp := &dto.ProjectResponse{
		ID:          project.ProjectID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		Budget:      project.Budget,
		ClientID:    project.ClientID,
		CreatedBy:   project.CreatedBy,
		Version:     project.Version,
		CreatedAt:   project.CreatedAt.Format(time.RFC3339),
	}
	for i := range members {
		resp.Members = append(resp.Members, toMemberResponse(&members[i]))
	}
	return resp
}

func toMemberResponse(member *model.ProjectMember) dto.ProjectMemberResponse {
	resp := dto.ProjectMemberResponse{
		UserID:     member.UserID,
		Role:       member.Role,
		HourlyRate: member.HourlyRate,
		JoinedAt:   member.JoinedAt.Format(time.RFC3339),
	}
	if member.User != nil {
		resp.Name = member.User.Name
		resp.Email = member.User.Email
	}
	return resp
}
