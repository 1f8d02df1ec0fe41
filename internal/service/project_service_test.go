package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/model"
)

// ── 测试辅助 ──

func setupTestProjectService() (ProjectService, *mocks) {
	repo, m := newMockRepository()
	return NewProjectService(repo, zap.NewNop()), m
}

func seedProjectUser(m *mocks, id, role string) *model.User {
	user := &model.User{UserID: id, Name: "用户" + id, Email: id + "@test.com", Role: role, IsActive: true}
	m.user.users[id] = user
	return user
}

// ── Create 测试 ──

func TestCreateProject_CreatorBecomesAdmin(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)

	resp, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:        "新项目",
		Description: "描述",
	}, "user-mgr")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Status != model.ProjectStatusPlanning {
		t.Errorf("期望默认状态=planning，实际=%s", resp.Status)
	}

	// 创建者自动成为项目内管理员
	members, err := svc.ListMembers(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("ListMembers 失败: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("期望 1 个成员，实际=%d", len(members))
	}
	if members[0].UserID != "user-mgr" || members[0].Role != model.ProjectRoleAdmin {
		t.Errorf("创建者应以 admin 身份入组，实际 user=%s role=%s", members[0].UserID, members[0].Role)
	}
}

func TestCreateProject_UnknownClient(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	clientID := "user-nonexistent"

	_, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:     "挂接客户的项目",
		ClientID: &clientID,
	}, "user-mgr")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── 可见性测试 ──

func TestGetProject_MemberVisibility(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	seedProjectUser(m, "user-emp", model.RoleEmployee)
	seedProjectUser(m, "user-out", model.RoleEmployee)

	created, err := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "可见性项目"}, "user-mgr")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if _, err := svc.AddMember(context.Background(), created.ID, &dto.AddMemberRequest{UserID: "user-emp"}); err != nil {
		t.Fatalf("AddMember 失败: %v", err)
	}

	t.Run("member can view", func(t *testing.T) {
		if _, err := svc.GetByID(context.Background(), created.ID, "user-emp", model.RoleEmployee); err != nil {
			t.Errorf("项目成员应可见: %v", err)
		}
	})

	t.Run("outsider employee forbidden", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), created.ID, "user-out", model.RoleEmployee)
		if !errors.Is(err, ErrProjectForbidden) {
			t.Errorf("期望 ErrProjectForbidden，实际: %v", err)
		}
	})

	t.Run("admin role bypasses membership", func(t *testing.T) {
		if _, err := svc.GetByID(context.Background(), created.ID, "user-whoever", model.RoleAdmin); err != nil {
			t.Errorf("admin 应可查看任意项目: %v", err)
		}
	})
}

func TestGetProject_ClientVisibility(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	seedProjectUser(m, "user-client", model.RoleClient)
	clientID := "user-client"

	created, err := svc.Create(context.Background(), &dto.CreateProjectRequest{
		Name:     "客户项目",
		ClientID: &clientID,
	}, "user-mgr")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	// 关联客户即便不是成员也可见
	if _, err := svc.GetByID(context.Background(), created.ID, "user-client", model.RoleClient); err != nil {
		t.Errorf("关联客户应可见: %v", err)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	svc, _ := setupTestProjectService()

	_, err := svc.GetByID(context.Background(), "proj-nonexistent", "user-1", model.RoleAdmin)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

// ── List 测试 ──

func TestListProjects_VisibilityScoped(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	seedProjectUser(m, "user-emp", model.RoleEmployee)

	p1, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "项目一"}, "user-mgr")
	if _, err := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "项目二"}, "user-mgr"); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if _, err := svc.AddMember(context.Background(), p1.ID, &dto.AddMemberRequest{UserID: "user-emp"}); err != nil {
		t.Fatalf("AddMember 失败: %v", err)
	}

	req := &dto.ListProjectsRequest{PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: 10}}

	mgrList, mgrTotal, err := svc.List(context.Background(), req, "user-mgr", model.RoleManager)
	if err != nil {
		t.Fatalf("管理角色 List 失败: %v", err)
	}
	if mgrTotal != 2 || len(mgrList) != 2 {
		t.Errorf("管理角色应看到全量 2 个项目，实际 total=%d len=%d", mgrTotal, len(mgrList))
	}

	empList, empTotal, err := svc.List(context.Background(), req, "user-emp", model.RoleEmployee)
	if err != nil {
		t.Fatalf("员工 List 失败: %v", err)
	}
	if empTotal != 1 || len(empList) != 1 {
		t.Errorf("员工只应看到参与的 1 个项目，实际 total=%d len=%d", empTotal, len(empList))
	}
}

// ── Update 测试 ──

func TestUpdateProject_Success(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	created, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "旧名字"}, "user-mgr")

	newName := "新名字"
	newStatus := model.ProjectStatusInProgress
	resp, err := svc.Update(context.Background(), created.ID, &dto.UpdateProjectRequest{
		Name:    &newName,
		Status:  &newStatus,
		Version: created.Version,
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Name != newName || resp.Status != newStatus {
		t.Errorf("期望 name=%s status=%s，实际 name=%s status=%s", newName, newStatus, resp.Name, resp.Status)
	}
	if resp.Version != created.Version+1 {
		t.Errorf("更新后版本号应递增为 %d，实际=%d", created.Version+1, resp.Version)
	}
}

func TestUpdateProject_VersionConflict(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	created, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "并发项目"}, "user-mgr")

	name := "第一次修改"
	if _, err := svc.Update(context.Background(), created.ID, &dto.UpdateProjectRequest{
		Name:    &name,
		Version: created.Version,
	}); err != nil {
		t.Fatalf("首次 Update 失败: %v", err)
	}

	// 携带过期版本号再次更新
	stale := "基于旧版本的修改"
	_, err := svc.Update(context.Background(), created.ID, &dto.UpdateProjectRequest{
		Name:    &stale,
		Version: created.Version,
	})
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("期望 ErrVersionConflict，实际: %v", err)
	}
}

// ── Delete 测试 ──

func TestDeleteProject(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	created, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "待删项目"}, "user-mgr")

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), created.ID, "user-mgr", model.RoleAdmin); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("删除后查询期望 ErrProjectNotFound，实际: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("重复删除期望 ErrProjectNotFound，实际: %v", err)
	}
}

// ── 成员管理测试 ──

func TestAddMember_Duplicate(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	seedProjectUser(m, "user-emp", model.RoleEmployee)
	created, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "成员项目"}, "user-mgr")

	rate := 60.0
	member, err := svc.AddMember(context.Background(), created.ID, &dto.AddMemberRequest{
		UserID:     "user-emp",
		HourlyRate: &rate,
	})
	if err != nil {
		t.Fatalf("AddMember 应成功: %v", err)
	}
	if member.Role != model.ProjectRoleMember {
		t.Errorf("未指定角色时应默认 member，实际=%s", member.Role)
	}
	if member.HourlyRate == nil || *member.HourlyRate != 60 {
		t.Error("项目级费率应写入成员记录")
	}

	_, err = svc.AddMember(context.Background(), created.ID, &dto.AddMemberRequest{UserID: "user-emp"})
	if !errors.Is(err, ErrMemberExists) {
		t.Errorf("重复添加期望 ErrMemberExists，实际: %v", err)
	}
}

func TestAddMember_UnknownUser(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	created, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "成员项目"}, "user-mgr")

	_, err := svc.AddMember(context.Background(), created.ID, &dto.AddMemberRequest{UserID: "user-nonexistent"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	svc, m := setupTestProjectService()
	seedProjectUser(m, "user-mgr", model.RoleManager)
	seedProjectUser(m, "user-emp", model.RoleEmployee)
	created, _ := svc.Create(context.Background(), &dto.CreateProjectRequest{Name: "成员项目"}, "user-mgr")
	if _, err := svc.AddMember(context.Background(), created.ID, &dto.AddMemberRequest{UserID: "user-emp"}); err != nil {
		t.Fatalf("AddMember 失败: %v", err)
	}

	if err := svc.RemoveMember(context.Background(), created.ID, "user-emp"); err != nil {
		t.Fatalf("RemoveMember 应成功: %v", err)
	}
	if err := svc.RemoveMember(context.Background(), created.ID, "user-emp"); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("移除不存在成员期望 ErrMemberNotFound，实际: %v", err)
	}
}
