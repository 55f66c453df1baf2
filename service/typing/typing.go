package typing

import (
	"sync"
	"time"

	"TripBoard/global"
)

const (
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
)

// TypingEvent 输入状态广播负载
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	DisplayName    string `json:"userName,omitempty"`
}

type Notifier interface {
	Notify(targets []*global.Session, event string, payload any)
}

type MembersFn func(roomID string) []*global.Session

type entry struct {
	sess  *global.Session
	timer *time.Timer
}

type Conf struct {
	TTL time.Duration // 无续期时自动清除的期限
}

// Coordinator 维护每个会话的“谁在输入”集合。纯内存、尽力而为，
// 不持久化也不重放；协调器重启后客户端重新输入即可恢复。
type Coordinator struct {
	mu   sync.Mutex
	sets map[string]map[string]*entry // convID -> userID -> entry

	ttl      time.Duration
	notifier Notifier
	members  MembersFn
}

func NewCoordinator(conf Conf, notifier Notifier, members MembersFn) *Coordinator {
	if conf.TTL <= 0 {
		conf.TTL = 5 * time.Second
	}
	return &Coordinator{
		sets:     make(map[string]map[string]*entry),
		ttl:      conf.TTL,
		notifier: notifier,
		members:  members,
	}
}

// Start 把 sess 加入输入集合并（重新）武装 TTL。集合真正变化才广播。
func (c *Coordinator) Start(conversationID string, sess *global.Session) {
	c.mu.Lock()
	set := c.sets[conversationID]
	if set == nil {
		set = make(map[string]*entry)
		c.sets[conversationID] = set
	}
	e, existed := set[sess.UserID]
	if existed {
		e.sess = sess
		e.timer.Reset(c.ttl)
		c.mu.Unlock()
		return
	}
	e = &entry{sess: sess}
	e.timer = time.AfterFunc(c.ttl, func() { c.expire(conversationID, sess.UserID) })
	set[sess.UserID] = e

	// 仍持锁广播：入队顺序 == 集合变更顺序
	c.broadcast(conversationID, sess.UserID, EventUserTyping, TypingEvent{
		ConversationID: conversationID,
		UserID:         sess.UserID,
		DisplayName:    sess.DisplayName,
	})
	c.mu.Unlock()
}

// Stop 把 sess 移出输入集合；重复 stop 是无害空操作。
func (c *Coordinator) Stop(conversationID string, sess *global.Session) {
	c.remove(conversationID, sess.UserID)
}

// IsTyping 查询快照（单测/调试用）。
func (c *Coordinator) IsTyping(conversationID, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.sets[conversationID]
	if set == nil {
		return false
	}
	_, ok := set[userID]
	return ok
}

// StopAllFor 断开清理：该连接在所有会话里的输入状态一并清除。
func (c *Coordinator) StopAllFor(sess *global.Session) {
	var convs []string
	c.mu.Lock()
	for conv, set := range c.sets {
		if e, ok := set[sess.UserID]; ok && e.sess.ConnID == sess.ConnID {
			convs = append(convs, conv)
		}
	}
	c.mu.Unlock()

	for _, conv := range convs {
		c.remove(conv, sess.UserID)
	}
}

func (c *Coordinator) expire(conversationID, userID string) {
	c.remove(conversationID, userID)
}

func (c *Coordinator) remove(conversationID, userID string) {
	c.mu.Lock()
	set := c.sets[conversationID]
	if set == nil {
		c.mu.Unlock()
		return
	}
	e, ok := set[userID]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.timer.Stop()
	delete(set, userID)
	if len(set) == 0 {
		delete(c.sets, conversationID)
	}
	c.broadcast(conversationID, userID, EventUserStoppedTyping, TypingEvent{
		ConversationID: conversationID,
		UserID:         userID,
	})
	c.mu.Unlock()
}

// broadcast 调用方必须持有 c.mu：持锁入队，广播顺序才等于集合变更顺序。
func (c *Coordinator) broadcast(conversationID, actorID, event string, payload any) {
	if c.notifier == nil || c.members == nil {
		return
	}
	all := c.members(conversationID)
	targets := all[:0:0]
	for _, s := range all {
		if s.UserID == actorID {
			continue
		}
		targets = append(targets, s)
	}
	if len(targets) > 0 {
		c.notifier.Notify(targets, event, payload)
	}
}
