package authz

import "github.com/Aliwaris512/Apploye/internal/model"

// Action 受权限控制的操作
type Action string

// 操作清单：路由与 Service 层统一引用这里，不再散落字符串比较
const (
	ActionUserList       Action = "user.list"
	ActionUserManage     Action = "user.manage" // 更新他人、停用、改角色、重置密码
	ActionProjectCreate  Action = "project.create"
	ActionProjectManage  Action = "project.manage" // 更新、删除、成员管理
	ActionTaskManage     Action = "task.manage"
	ActionTimesheetOther Action = "timesheet.other" // 查看他人工时/出勤
	ActionPayroll        Action = "payroll"
	ActionReportAll      Action = "report.all" // 查看/下载任意人创建的报表
)

// 权限矩阵：操作 → 允许的全局角色白名单
// 精确匹配，无角色层级：admin 不隐式覆盖 manager 的白名单
var policy = map[Action][]string{
	ActionUserList:       {model.RoleAdmin, model.RoleManager},
	ActionUserManage:     {model.RoleAdmin},
	ActionProjectCreate:  {model.RoleAdmin, model.RoleManager},
	ActionProjectManage:  {model.RoleAdmin, model.RoleManager},
	ActionTaskManage:     {model.RoleAdmin, model.RoleManager},
	ActionTimesheetOther: {model.RoleAdmin, model.RoleManager},
	ActionPayroll:        {model.RoleAdmin},
	ActionReportAll:      {model.RoleAdmin},
}

// Roles 返回操作允许的角色白名单（副本，调用方不可修改矩阵）
func Roles(action Action) []string {
	src := policy[action]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Can 判断角色是否允许执行操作
func Can(role string, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}
