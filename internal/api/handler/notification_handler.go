package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Aliwaris512/Apploye/internal/dto"
	"github.com/Aliwaris512/Apploye/internal/service"
	"github.com/Aliwaris512/Apploye/internal/ws"
	"github.com/Aliwaris512/Apploye/pkg/jwt"
	"github.com/Aliwaris512/Apploye/pkg/response"
)

// NotificationHandler 通知模块 HTTP / WebSocket 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
	hub             *ws.Hub
	jwtMgr          *jwt.Manager
	upgrader        websocket.Upgrader
	logger          *zap.Logger
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(
	notificationSvc service.NotificationService,
	hub *ws.Hub,
	jwtMgr *jwt.Manager,
	allowOrigins []string,
	logger *zap.Logger,
) *NotificationHandler {
	originSet := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		originSet[o] = true
	}

	return &NotificationHandler{
		notificationSvc: notificationSvc,
		hub:             hub,
		jwtMgr:          jwtMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originSet[r.Header.Get("Origin")]
			},
		},
		logger: logger,
	}
}

// Subscribe 保存 Web Push 订阅
// POST /api/v1/notifications/subscribe
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubscribePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.notificationSvc.Subscribe(c.Request.Context(), userID, &req); err != nil {
		response.InternalError(c)
		return
	}
	response.Created(c, nil)
}

// Unsubscribe 删除 Web Push 订阅
// DELETE /api/v1/notifications/subscribe
func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.Unsubscribe(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			response.NotFound(c, 18001, "推送订阅不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// Send 管理端定向发送通知
// POST /api/v1/notifications/send
func (h *NotificationHandler) Send(c *gin.Context) {
	var req dto.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	h.notificationSvc.Notify(c.Request.Context(), req.UserID, service.NotificationTypeDirect, req.Title, req.Body)
	response.OK(c, nil)
}

// ServeWS WebSocket 通知通道
// GET /ws/notifications?token=<access_token>
// 浏览器 WebSocket 无法携带请求头，改从 query 参数取 Token
func (h *NotificationHandler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, 10002, "缺少 token 参数")
		return
	}

	claims, err := h.jwtMgr.ParseToken(token)
	if err != nil || claims.TokenType != "access" {
		response.Unauthorized(c, 10002, "Token 无效或已过期")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket 升级失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}

	wrapped := ws.NewGorillaConn(conn)
	h.hub.Register(claims.UserID, wrapped)

	// 读循环只用于探测断开，收到的消息一律丢弃
	go func() {
		defer h.hub.Unregister(claims.UserID, wrapped)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
