package ws

import (
	"errors"
	"sync"
	"testing"
)

// fakeConn 内存假连接，记录收到的消息
type fakeConn struct {
	mu     sync.Mutex
	msgs   []string
	closed bool
	fail   bool
}

func (c *fakeConn) WriteText(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("write failed")
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHub_SendToRegistered(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	hub.Register("user-1", conn)

	if !hub.Send("user-1", "hello") {
		t.Fatal("发送给在线用户应返回 true")
	}
	if len(conn.msgs) != 1 || conn.msgs[0] != "hello" {
		t.Errorf("期望收到 hello，实际=%v", conn.msgs)
	}
}

func TestHub_SendToOffline(t *testing.T) {
	hub := NewHub()

	// 不在线只是 no-op，不是错误
	if hub.Send("nobody", "hello") {
		t.Error("发送给离线用户应返回 false")
	}
}

func TestHub_ReplaceConnClosesOld(t *testing.T) {
	hub := NewHub()
	old := &fakeConn{}
	hub.Register("user-1", old)

	replacement := &fakeConn{}
	hub.Register("user-1", replacement)

	if !old.closed {
		t.Error("重复注册应关闭旧连接")
	}
	if hub.Count() != 1 {
		t.Errorf("期望连接数=1，实际=%d", hub.Count())
	}

	hub.Send("user-1", "hi")
	if len(replacement.msgs) != 1 {
		t.Error("消息应发到新连接")
	}
}

func TestHub_UnregisterOnlyOwnConn(t *testing.T) {
	hub := NewHub()
	old := &fakeConn{}
	hub.Register("user-1", old)

	replacement := &fakeConn{}
	hub.Register("user-1", replacement)

	// 旧连接的延迟注销不应移除新连接
	hub.Unregister("user-1", old)
	if hub.Count() != 1 {
		t.Errorf("期望连接数=1，实际=%d", hub.Count())
	}

	hub.Unregister("user-1", replacement)
	if hub.Count() != 0 {
		t.Errorf("期望连接数=0，实际=%d", hub.Count())
	}
}

func TestHub_WriteFailureEvictsConn(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{fail: true}
	hub.Register("user-1", conn)

	if hub.Send("user-1", "hello") {
		t.Error("写失败应返回 false")
	}
	if hub.Count() != 0 {
		t.Error("写失败应注销连接")
	}
	if !conn.closed {
		t.Error("写失败应关闭连接")
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	b := &fakeConn{}
	bad := &fakeConn{fail: true}
	hub.Register("a", a)
	hub.Register("b", b)
	hub.Register("bad", bad)

	sent := hub.Broadcast("weekly")
	if sent != 2 {
		t.Errorf("期望送达 2，实际=%d", sent)
	}
	if hub.Count() != 2 {
		t.Errorf("坏连接应被剔除，期望连接数=2，实际=%d", hub.Count())
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := &fakeConn{}
			id := string(rune('a' + n%26))
			hub.Register(id, conn)
			hub.Send(id, "ping")
			hub.Broadcast("all")
			hub.Unregister(id, conn)
		}(i)
	}
	wg.Wait()
}
