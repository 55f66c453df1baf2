package global

import (
	"sync"
)

// Session 是一条已鉴权长连接的身份。连接建立时创建，断开/登出即销毁，
// 由网关独占持有；房间/锁/输入协调器只读它的身份字段。
type Session struct {
	ConnID      string `json:"conn_id"` // 连接ID（雪花，本节点内唯一）
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`

	mu     sync.Mutex
	joined map[string]struct{} // 已加入的房间ID集合
}

func NewSession(connID, userID, displayName, avatarRef string) *Session {
	return &Session{
		ConnID:      connID,
		UserID:      userID,
		DisplayName: displayName,
		AvatarRef:   avatarRef,
		joined:      make(map[string]struct{}),
	}
}

func (s *Session) MarkJoined(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[roomID] = struct{}{}
}

func (s *Session) MarkLeft(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joined, roomID)
}

func (s *Session) HasJoined(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joined[roomID]
	return ok
}

// JoinedRooms 返回快照；断开清理时遍历用。
func (s *Session) JoinedRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.joined))
	for id := range s.joined {
		out = append(out, id)
	}
	return out
}
