package editing

import (
	"sync"
	"time"

	"TripBoard/global"
)

const (
	EventUserEditing        = "user_editing"
	EventUserStoppedEditing = "user_stopped_editing"
)

// LockEvent 编辑提示的广播负载；noteId 即画板元素ID。
type LockEvent struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"userName,omitempty"`
	ResourceID  string `json:"noteId"`
}

// Lock 建议性编辑锁。只是 UI 提示，不做资源互斥。
type Lock struct {
	RoomID      string
	ResourceID  string
	UserID      string
	DisplayName string
	ConnID      string // 持有者连接，迟到的 stop 靠它判活
	AcquiredAt  time.Time
	ExpiresAt   time.Time
}

type Notifier interface {
	Notify(targets []*global.Session, event string, payload any)
}

// MembersFn 返回房间当前成员会话（广播目标由房间注册表提供）。
type MembersFn func(roomID string) []*global.Session

type Conf struct {
	TTL   time.Duration    // 无 stop 时锁的存活期
	Clock func() time.Time // 可注入时钟（单测用）
}

// Coordinator 维护每资源至多一把活锁。start_editing 无条件顶掉旧持有者
// （last-writer-wins），stop_editing 只有当前持有者才能清除。
type Coordinator struct {
	mu     sync.Mutex
	locks  map[string]*Lock // roomID+"/"+resourceID -> lock
	timers map[string]*time.Timer

	ttl      time.Duration
	clock    func() time.Time
	notifier Notifier
	members  MembersFn
}

func NewCoordinator(conf Conf, notifier Notifier, members MembersFn) *Coordinator {
	if conf.TTL <= 0 {
		conf.TTL = 30 * time.Second
	}
	if conf.Clock == nil {
		conf.Clock = time.Now
	}
	return &Coordinator{
		locks:    make(map[string]*Lock),
		timers:   make(map[string]*time.Timer),
		ttl:      conf.TTL,
		clock:    conf.Clock,
		notifier: notifier,
		members:  members,
	}
}

func key(roomID, resourceID string) string { return roomID + "/" + resourceID }

// Start 把锁无条件授予 sess 并重置 TTL，向房间其他成员广播 user_editing。
func (c *Coordinator) Start(roomID, resourceID string, sess *global.Session) *Lock {
	now := c.clock()
	lk := &Lock{
		RoomID:      roomID,
		ResourceID:  resourceID,
		UserID:      sess.UserID,
		DisplayName: sess.DisplayName,
		ConnID:      sess.ConnID,
		AcquiredAt:  now,
		ExpiresAt:   now.Add(c.ttl),
	}

	k := key(roomID, resourceID)
	c.mu.Lock()
	c.locks[k] = lk
	if t, ok := c.timers[k]; ok {
		t.Stop()
	}
	c.timers[k] = time.AfterFunc(c.ttl, func() { c.expire(k) })

	// 仍持锁广播：入队顺序 == 授予顺序，客户端最后看到的持有者即当前持有者
	c.broadcast(roomID, sess.UserID, EventUserEditing, LockEvent{
		RoomID:      roomID,
		UserID:      sess.UserID,
		DisplayName: sess.DisplayName,
		ResourceID:  resourceID,
	})
	c.mu.Unlock()
	return lk
}

// Stop 清除锁，仅当 sess 仍是当前持有者（按 ConnID 比对）。
// 被顶替的旧持有者迟到的 stop 不会清掉新持有者的锁；重复 stop 是无害空操作。
func (c *Coordinator) Stop(roomID, resourceID string, sess *global.Session) bool {
	k := key(roomID, resourceID)
	c.mu.Lock()
	lk, ok := c.locks[k]
	if !ok || lk.ConnID != sess.ConnID {
		c.mu.Unlock()
		return false
	}
	c.removeLocked(k)
	c.broadcast(roomID, sess.UserID, EventUserStoppedEditing, LockEvent{
		RoomID:     roomID,
		UserID:     sess.UserID,
		ResourceID: resourceID,
	})
	c.mu.Unlock()
	return true
}

// Holder 当前持有者快照；无锁时返回 nil。
func (c *Coordinator) Holder(roomID, resourceID string) *Lock {
	c.mu.Lock()
	defer c.mu.Unlock()
	lk, ok := c.locks[key(roomID, resourceID)]
	if !ok {
		return nil
	}
	cp := *lk
	return &cp
}

// ReleaseAllFor 断开即释放该连接持有的全部锁（不等 TTL）。
func (c *Coordinator) ReleaseAllFor(sess *global.Session) {
	c.mu.Lock()
	for k, lk := range c.locks {
		if lk.ConnID != sess.ConnID {
			continue
		}
		c.removeLocked(k)
		c.broadcast(lk.RoomID, lk.UserID, EventUserStoppedEditing, LockEvent{
			RoomID:     lk.RoomID,
			UserID:     lk.UserID,
			ResourceID: lk.ResourceID,
		})
	}
	c.mu.Unlock()
}

func (c *Coordinator) expire(k string) {
	c.mu.Lock()
	lk, ok := c.locks[k]
	if !ok || c.clock().Before(lk.ExpiresAt) {
		// 已被 stop 清掉，或被新 start 续期后旧 timer 晚到
		c.mu.Unlock()
		return
	}
	c.removeLocked(k)
	c.broadcast(lk.RoomID, lk.UserID, EventUserStoppedEditing, LockEvent{
		RoomID:     lk.RoomID,
		UserID:     lk.UserID,
		ResourceID: lk.ResourceID,
	})
	c.mu.Unlock()
}

func (c *Coordinator) removeLocked(k string) {
	delete(c.locks, k)
	if t, ok := c.timers[k]; ok {
		t.Stop()
		delete(c.timers, k)
	}
}

// broadcast 调用方必须持有 c.mu：持锁入队，广播顺序才等于状态变更顺序。
func (c *Coordinator) broadcast(roomID, actorID, event string, payload any) {
	if c.notifier == nil || c.members == nil {
		return
	}
	all := c.members(roomID)
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
