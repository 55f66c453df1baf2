package room

import (
	"hash/fnv"
	"sync"
	"time"

	"TripBoard/global"
	"TripBoard/logger"
)

// 房间类型：共享画板 / 会话
const (
	TypeDashboard    = "dashboard"
	TypeConversation = "conversation"
)

// 服务端事件名
const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
)

// Member 是 roster 快照里的一项
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"name"`
	AvatarRef   string `json:"avatar"`
}

// PresenceEvent 进出房间的广播负载
type PresenceEvent struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"name,omitempty"`
	AvatarRef   string `json:"avatar,omitempty"`
}

// Notifier 把事件送达一组会话；由网关实现（序列化+fanout）。
type Notifier interface {
	Notify(targets []*global.Session, event string, payload any)
}

type roomState struct {
	id         string
	roomType   string
	members    map[string]*global.Session // userID -> session
	emptySince time.Time                  // 空置起点；零值表示非空
}

const shardCount = 16

// 同一 roomId 的所有变更都落在同一个 shard 锁下：按 key 分片的单写者模型。
type shard struct {
	mu    sync.Mutex
	rooms map[string]*roomState
}

// Registry 维护每个房间的内存成员表。从不持久化：重启即清空，
// 客户端重连重新 join 即可重建。
type Registry struct {
	shards   [shardCount]*shard
	grace    time.Duration
	notifier Notifier
	clock    func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

type Conf struct {
	Grace time.Duration    // 空房间保留宽限期
	Clock func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func NewRegistry(conf Conf, notifier Notifier) *Registry {
	if conf.Clock == nil {
		conf.Clock = time.Now
	}
	if conf.Grace <= 0 {
		conf.Grace = 60 * time.Second
	}
	r := &Registry{
		grace:    conf.Grace,
		notifier: notifier,
		clock:    conf.Clock,
		stopCh:   make(chan struct{}),
	}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]*roomState)}
	}
	go r.sweeper()
	return r
}

func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) shardFor(roomID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return r.shards[h.Sum32()%shardCount]
}

// Join 把会话加入房间并返回当前 roster 快照。
// 成员集上幂等：同一用户重复 join 只换绑会话指针，不再广播 joined；
// 真正的新成员会收到既有成员的 user_joined 广播。房间首个 join 时惰性创建。
func (r *Registry) Join(roomID, roomType string, sess *global.Session) []Member {
	sh := r.shardFor(roomID)
	sh.mu.Lock()

	st, ok := sh.rooms[roomID]
	if !ok {
		st = &roomState{
			id:       roomID,
			roomType: roomType,
			members:  make(map[string]*global.Session),
		}
		sh.rooms[roomID] = st
	}
	st.emptySince = time.Time{}

	_, existed := st.members[sess.UserID]
	st.members[sess.UserID] = sess
	sess.MarkJoined(roomID)

	roster := rosterLocked(st)
	// 仍持分片锁广播：同房间的 presence 入队顺序 == 成员表变更顺序
	if !existed && r.notifier != nil {
		if others := othersLocked(st, sess.UserID); len(others) > 0 {
			r.notifier.Notify(others, EventUserJoined, PresenceEvent{
				RoomID:      roomID,
				UserID:      sess.UserID,
				DisplayName: sess.DisplayName,
				AvatarRef:   sess.AvatarRef,
			})
		}
	}
	sh.mu.Unlock()
	return roster
}

// Leave 移除成员并广播 user_left。来自已被顶替连接的迟到 leave 不会
// 误删新连接的成员资格（按 ConnID 比对）。房间空置后进入宽限期，由
// sweeper 清除。返回是否真的发生了移除。
func (r *Registry) Leave(roomID string, sess *global.Session) bool {
	sh := r.shardFor(roomID)
	sh.mu.Lock()

	st, ok := sh.rooms[roomID]
	if !ok {
		sh.mu.Unlock()
		sess.MarkLeft(roomID)
		return false
	}
	cur, ok := st.members[sess.UserID]
	if !ok || cur.ConnID != sess.ConnID {
		sh.mu.Unlock()
		sess.MarkLeft(roomID)
		return false
	}

	delete(st.members, sess.UserID)
	sess.MarkLeft(roomID)
	if len(st.members) == 0 {
		st.emptySince = r.clock()
	}
	if remaining := othersLocked(st, ""); len(remaining) > 0 && r.notifier != nil {
		r.notifier.Notify(remaining, EventUserLeft, PresenceEvent{
			RoomID: roomID,
			UserID: sess.UserID,
		})
	}
	sh.mu.Unlock()
	return true
}

// Roster 当前成员快照（REST 兜底用）。
func (r *Registry) Roster(roomID string) []Member {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rooms[roomID]
	if !ok {
		return []Member{}
	}
	return rosterLocked(st)
}

// Members 当前成员会话快照（fanout 用）。
func (r *Registry) Members(roomID string) []*global.Session {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rooms[roomID]
	if !ok {
		return nil
	}
	return othersLocked(st, "")
}

func (r *Registry) IsMember(roomID, userID string) bool {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = st.members[userID]
	return ok
}

// MemberSession 返回该用户在房间里当前绑定的会话；非成员返回 nil。
func (r *Registry) MemberSession(roomID, userID string) *global.Session {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rooms[roomID]
	if !ok {
		return nil
	}
	return st.members[userID]
}

func rosterLocked(st *roomState) []Member {
	out := make([]Member, 0, len(st.members))
	for _, s := range st.members {
		out = append(out, Member{UserID: s.UserID, DisplayName: s.DisplayName, AvatarRef: s.AvatarRef})
	}
	return out
}

func othersLocked(st *roomState, excludeUserID string) []*global.Session {
	out := make([]*global.Session, 0, len(st.members))
	for uid, s := range st.members {
		if uid == excludeUserID {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ===== 空房间清理 =====

func (r *Registry) sweeper() {
	every := r.grace / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-t.C:
			r.sweepOnce()
		}
	}
}

func (r *Registry) sweepOnce() {
	now := r.clock()
	for _, sh := range r.shards {
		sh.mu.Lock()
		for id, st := range sh.rooms {
			if len(st.members) == 0 && !st.emptySince.IsZero() && now.Sub(st.emptySince) >= r.grace {
				delete(sh.rooms, id)
				logger.Debug("room purged after grace: " + id)
			}
		}
		sh.mu.Unlock()
	}
}
