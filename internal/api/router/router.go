package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/config"
	"github.com/Aliwaris512/Apploye/internal/api/handler"
	"github.com/Aliwaris512/Apploye/internal/api/middleware"
	"github.com/Aliwaris512/Apploye/internal/authz"
	"github.com/Aliwaris512/Apploye/pkg/jwt"
	"github.com/Aliwaris512/Apploye/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── WebSocket 通知通道（Token 走 query 参数） ──
	r.GET("/ws/notifications", h.Notification.ServeWS)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.BodyLimit(cfg.Upload.MaxSizeMB << 20))
	{
		// 认证模块（无需认证；登录与找回密码限流防爆破）
		auth := v1.Group("/auth")
		{
			loginLimit := middleware.RateLimit(rdb, 10, time.Minute)
			auth.POST("/login", loginLimit, h.Auth.Login)
			auth.POST("/signup", loginLimit, h.Auth.Signup)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/forgot-password", middleware.RateLimit(rdb, 3, time.Minute), h.Auth.ForgotPassword)
			auth.POST("/verify-otp", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.VerifyOTP)
			auth.POST("/reset-password", middleware.RateLimit(rdb, 5, time.Minute), h.Auth.ResetPassword)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetMe)
			authorized.POST("/auth/change-password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth(authz.Roles(authz.ActionUserList)...), h.User.List)
				users.GET("/:id", middleware.RoleAuth(authz.Roles(authz.ActionUserList)...), h.User.Get)
				users.POST("", middleware.RoleAuth(authz.Roles(authz.ActionUserManage)...), h.User.Create)
				users.PATCH("/:id", middleware.RoleAuth(authz.Roles(authz.ActionUserManage)...), h.User.Update)
			}

			// 项目模块
			projects := authorized.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.GET("/:id", h.Project.Get)
				projects.POST("", middleware.RoleAuth(authz.Roles(authz.ActionProjectCreate)...), h.Project.Create)
				projects.PATCH("/:id", middleware.RoleAuth(authz.Roles(authz.ActionProjectManage)...), h.Project.Update)
				projects.DELETE("/:id", middleware.RoleAuth(authz.Roles(authz.ActionProjectManage)...), h.Project.Delete)

				projects.GET("/:id/members", h.Project.ListMembers)
				projects.POST("/:id/members", middleware.RoleAuth(authz.Roles(authz.ActionProjectManage)...), h.Project.AddMember)
				projects.DELETE("/:id/members/:userId", middleware.RoleAuth(authz.Roles(authz.ActionProjectManage)...), h.Project.RemoveMember)

				projects.GET("/:id/tasks", h.Task.ListByProject)
				projects.POST("/:id/tasks", middleware.RoleAuth(authz.Roles(authz.ActionTaskManage)...), h.Task.Create)
			}

			// 任务模块
			tasks := authorized.Group("/tasks")
			{
				tasks.GET("/:id", h.Task.Get)
				tasks.PATCH("/:id", middleware.RoleAuth(authz.Roles(authz.ActionTaskManage)...), h.Task.Update)
				tasks.DELETE("/:id", middleware.RoleAuth(authz.Roles(authz.ActionTaskManage)...), h.Task.Delete)
			}

			// 计时模块
			timer := authorized.Group("/timer")
			{
				timer.POST("/start", h.Timesheet.StartTimer)
				timer.POST("/stop", h.Timesheet.StopTimer)
				timer.GET("/current", h.Timesheet.GetRunning)
			}

			// 工时与出勤（查他人的权限在 Handler 内校验）
			authorized.GET("/timesheet", h.Timesheet.GetTimesheet)
			authorized.GET("/timesheet/export", h.Export.ExportTimesheet)
			authorized.GET("/timesheet/export/ics", h.Export.ExportCalendar)
			authorized.GET("/attendance", h.Timesheet.GetAttendance)

			// 薪酬模块
			payroll := authorized.Group("/payroll")
			{
				payroll.GET("", h.Timesheet.ListPayroll)
				payroll.POST("", middleware.RoleAuth(authz.Roles(authz.ActionPayroll)...), h.Timesheet.PostPayroll)
				payroll.POST("/calculate", middleware.RoleAuth(authz.Roles(authz.ActionPayroll)...), h.Timesheet.CalculatePayroll)
			}

			// 活动采集模块
			activities := authorized.Group("/activities")
			{
				activities.POST("", h.Activity.Track)
				activities.POST("/enqueue", h.Activity.Enqueue)
				activities.POST("/sync", h.Activity.Sync)
				activities.GET("", h.Activity.List)
				activities.GET("/summary", h.Activity.UsageSummary)
			}

			// 截图模块
			screenshots := authorized.Group("/screenshots")
			{
				screenshots.POST("", h.Screenshot.Upload)
				screenshots.GET("", h.Screenshot.List)
				screenshots.GET("/:id/file", h.Screenshot.ServeFile)
				screenshots.GET("/:id/thumbnail", h.Screenshot.ServeThumbnail)
			}

			// 报表模块
			reports := authorized.Group("/reports")
			{
				reports.POST("", h.Report.Create)
				reports.GET("", h.Report.List)
				reports.GET("/:id", h.Report.Get)
				reports.GET("/:id/download", h.Report.Download)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.POST("/subscribe", h.Notification.Subscribe)
				notifications.DELETE("/subscribe", h.Notification.Unsubscribe)
				notifications.POST("/send", middleware.RoleAuth(authz.Roles(authz.ActionUserManage)...), h.Notification.Send)
			}
		}
	}

	return r
}
