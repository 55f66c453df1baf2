package ws

import (
	"sync"
)

// ConnManager 连接索引。不变式：每个用户至多一条活连接，
// 新连接登记时顶掉旧连接（Bind 返回被顶的那条，由调用方关闭）。
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Client // connID -> client
	byUser map[string]*Client // userID -> client
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		byConn: make(map[string]*Client),
		byUser: make(map[string]*Client),
	}
}

// Bind 登记新连接，返回同用户被顶替的旧连接（无则 nil）。
func (m *ConnManager) Bind(c *Client) (old *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old = m.byUser[c.Sess.UserID]
	if old != nil {
		delete(m.byConn, old.ConnID)
	}
	m.byConn[c.ConnID] = c
	m.byUser[c.Sess.UserID] = c
	return old
}

// Remove 摘除连接；user 索引只有仍指向这条连接时才清
// （迟到的断开清理不能误删顶替者）。
func (m *ConnManager) Remove(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byConn, c.ConnID)
	if cur, ok := m.byUser[c.Sess.UserID]; ok && cur.ConnID == c.ConnID {
		delete(m.byUser, c.Sess.UserID)
	}
}

func (m *ConnManager) GetByConn(connID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byConn[connID]
	return c, ok
}

func (m *ConnManager) GetByUser(userID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byUser[userID]
	return c, ok
}

func (m *ConnManager) CountOnline() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byConn)
}

// CloseAll 停机时关闭全部连接。
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		clients = append(clients, c)
	}
	m.byConn = make(map[string]*Client)
	m.byUser = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
