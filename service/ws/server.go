package ws

import (
	"context"
	"time"

	"TripBoard/global"
	"TripBoard/logger"
	"TripBoard/module/plan/model"
	"TripBoard/service/editing"
	"TripBoard/service/natsx"
	"TripBoard/service/relay"
	"TripBoard/service/room"
	"TripBoard/service/storage"
	"TripBoard/service/typing"
	"TripBoard/tools/safe"
	"TripBoard/tools/security"
)

type Conf struct {
	NodeID        string
	EditingTTL    time.Duration
	TypingTTL     time.Duration
	RoomGrace     time.Duration
	PresenceTTL   time.Duration
	SendQueueSize int
	FanoutWorkers int
	FanoutQueue   int
	JwtSecret     []byte
}

// Server 是实时网关：持有连接表、房间注册表和各协调器，
// 并作为它们共同的 Notifier（序列化一次，fanout 到目标连接）。
type Server struct {
	conf     Conf
	authOpts security.Options

	conns  *ConnManager
	rooms  *room.Registry
	locks  *editing.Coordinator
	typing *typing.Coordinator
	relay  *relay.Relay
	disp   *Dispatcher
	fanout *Fanout
	bus    *natsx.Relay // 可为 nil：单节点部署
}

func NewServer(conf Conf, store relay.MessageStore, journal relay.Journal, bus *natsx.Relay) *Server {
	s := &Server{
		conf:     conf,
		authOpts: security.DefaultOptions(conf.JwtSecret),
		conns:    NewConnManager(),
		disp:     NewDispatcher(),
		fanout:   NewFanout(conf.FanoutWorkers, conf.FanoutQueue),
		bus:      bus,
	}
	s.rooms = room.NewRegistry(room.Conf{Grace: conf.RoomGrace}, s)
	s.locks = editing.NewCoordinator(editing.Conf{TTL: conf.EditingTTL}, s, s.rooms.Members)
	s.typing = typing.NewCoordinator(typing.Conf{TTL: conf.TypingTTL}, s, s.rooms.Members)
	s.relay = relay.NewRelay(store, s.rooms, s, journal)

	s.disp.Register(&joinHandler{})
	s.disp.Register(&leaveHandler{})
	s.disp.Register(&sendHandler{})
	s.disp.Register(&typingStartHandler{})
	s.disp.Register(&typingStopHandler{})
	s.disp.Register(&startEditingHandler{})
	s.disp.Register(&stopEditingHandler{})

	if bus != nil {
		if err := bus.SubscribeRooms(s.deliverRemote); err != nil {
			logger.Errorf("[ws] subscribe room bus failed: %v", err)
		}
	}
	return s
}

// Rooms 暴露给 REST 兜底接口查 roster。
func (s *Server) Rooms() *room.Registry { return s.rooms }

// SessionOf 返回该用户当前活跃连接的会话；离线返回 nil（REST 幂等 join 用）。
func (s *Server) SessionOf(userID string) *global.Session {
	if c, ok := s.conns.GetByUser(userID); ok {
		return c.Sess
	}
	return nil
}

func (s *Server) Close() {
	s.rooms.Close()
	s.conns.CloseAll()
	if s.bus != nil {
		s.bus.Close()
	}
}

// Authenticate 凭证校验（鉴权协作方）。
func (s *Server) Authenticate(token string) (*security.Identity, error) {
	return security.Verify(s.authOpts, token)
}

// Notify 实现 room/editing/typing/relay 的 Notifier：
// 序列化一次，按房间 key 保序 fanout；多节点时同帧转发给其他网关。
func (s *Server) Notify(targets []*global.Session, event string, payload any) {
	frame := MarshalEvent(event, payload)
	if frame == nil {
		return
	}
	key := roomKeyOf(payload)
	s.fanout.Broadcast(key, s.resolve(targets), frame)
	if s.bus != nil && key != "" {
		s.bus.PublishRoomEvent(key, frame)
	}
}

// deliverRemote 其他节点发来的房间事件：投给本节点持有的成员，不再回发。
func (s *Server) deliverRemote(env *natsx.Envelope) {
	members := s.rooms.Members(env.RoomID)
	if len(members) == 0 {
		return
	}
	s.fanout.Broadcast(env.RoomID, s.resolve(members), env.Payload)
}

func (s *Server) resolve(sessions []*global.Session) []*Client {
	out := make([]*Client, 0, len(sessions))
	for _, sess := range sessions {
		if c, ok := s.conns.GetByConn(sess.ConnID); ok {
			out = append(out, c)
		}
	}
	return out
}

// sendTo 单连接直达回复（ack/错误帧不走广播池）。
func (s *Server) sendTo(c *Client, event string, payload any) {
	if frame := MarshalEvent(event, payload); frame != nil {
		c.enqueue(frame)
	}
}

// cleanup 断开收尾：退房广播、立刻释放编辑锁（不等TTL）、清输入状态、
// 摘 presence 镜像、摘连接索引。
func (s *Server) cleanup(c *Client) {
	for _, roomID := range c.Sess.JoinedRooms() {
		s.rooms.Leave(roomID, c.Sess)
	}
	s.locks.ReleaseAllFor(c.Sess)
	s.typing.StopAllFor(c.Sess)

	s.conns.Remove(c)
	user := c.Sess.UserID
	if _, ok := s.conns.GetByUser(user); ok {
		// 已被新连接顶替，presence 镜像归新连接维护
		c.Close()
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := storage.PresenceOffline(ctx, user); err != nil {
			logger.Warnf("[ws] presence offline user=%s err=%v", user, err)
		}
	})
	c.Close()
}

func roomKeyOf(payload any) string {
	switch p := payload.(type) {
	case room.PresenceEvent:
		return p.RoomID
	case editing.LockEvent:
		return p.RoomID
	case typing.TypingEvent:
		return p.ConversationID
	case *model.MessageModel:
		return p.ConversationID
	}
	return ""
}
