package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn 在线连接的最小写接口
// 真实实现为 gorilla/websocket 连接；测试中用内存假连接替代
type Conn interface {
	WriteText(msg string) error
	Close() error
}

// GorillaConn 包装 gorilla/websocket 连接
// gorilla 的写操作不允许并发，内部用互斥锁串行化
type GorillaConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewGorillaConn 包装一条已升级的 websocket 连接
func NewGorillaConn(conn *websocket.Conn) *GorillaConn {
	return &GorillaConn{conn: conn}
}

// WriteText 发送一条文本消息
func (c *GorillaConn) WriteText(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Close 关闭底层连接
func (c *GorillaConn) Close() error {
	return c.conn.Close()
}

// Hub 进程内在线连接注册表，按用户 ID 索引
// 互斥锁保护；不跨进程共享，多实例部署的实时广播需要外部 pub/sub
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewHub 创建空的连接注册表
func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

// Register 登记用户连接；同一用户重复连接时关闭旧连接
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	old, exists := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()

	if exists {
		_ = old.Close()
	}
}

// Unregister 注销用户连接
// 仅当注册表中仍是这条连接时才移除，避免误删重连后的新连接
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	if cur, ok := h.conns[userID]; ok && cur == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

// Send 向指定用户发送文本消息，尽力而为
// 用户不在线返回 false 且不报错；写失败时顺手注销连接
func (h *Hub) Send(userID, msg string) bool {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()

	if !ok {
		return false
	}
	if err := conn.WriteText(msg); err != nil {
		h.Unregister(userID, conn)
		_ = conn.Close()
		return false
	}
	return true
}

// Broadcast 向所有在线用户发送文本消息，返回送达数量
func (h *Hub) Broadcast(msg string) int {
	h.mu.RLock()
	targets := make(map[string]Conn, len(h.conns))
	for id, conn := range h.conns {
		targets[id] = conn
	}
	h.mu.RUnlock()

	sent := 0
	for id, conn := range targets {
		if err := conn.WriteText(msg); err != nil {
			h.Unregister(id, conn)
			_ = conn.Close()
			continue
		}
		sent++
	}
	return sent
}

// Count 当前在线连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
