package natsx

import (
	"encoding/json"
	"strings"
	"time"

	"TripBoard/logger"
	errs "TripBoard/tools/errs"

	"github.com/nats-io/nats.go"
)

// 跨网关房间事件转发（Core NATS，无持久化）。
// 多节点部署时，同一房间的成员可能分散在不同网关：每个节点把本地产生的
// 房间增量发到 trip.room.<roomId>，其余节点收到后投给自己持有的成员。
// 丢了就丢了——临态事件本来就允许丢失，客户端重连重建。

const subjectPrefix = "trip.room."

type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Envelope 跨节点转发的事件壳
type Envelope struct {
	Origin  string          `json:"origin"` // 产生事件的节点ID
	RoomID  string          `json:"room_id"`
	Payload json.RawMessage `json:"payload"` // 已序列化的下行帧，原样投递
	Ts      int64           `json:"ts"`
}

type Relay struct {
	nc     *nats.Conn
	origin string
	sub    *nats.Subscription
}

// NewRelay 连接 NATS；Servers 为空返回 nil（单节点部署不启用）。
func NewRelay(cfg Config, origin string) (*Relay, error) {
	if len(cfg.Servers) == 0 {
		return nil, nil
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect")
	}
	logger.Infof("[natsx] connected servers=%v origin=%s", cfg.Servers, origin)
	return &Relay{nc: nc, origin: origin}, nil
}

// PublishRoomEvent 把一帧已序列化的房间事件广播给其他节点。尽力而为。
func (r *Relay) PublishRoomEvent(roomID string, frame []byte) {
	if r == nil || r.nc == nil {
		return
	}
	env := Envelope{Origin: r.origin, RoomID: roomID, Payload: frame, Ts: time.Now().UnixMilli()}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := r.nc.Publish(subjectPrefix+roomID, data); err != nil {
		logger.Warnf("[natsx] publish room=%s err=%v", roomID, err)
	}
}

// SubscribeRooms 订阅全部房间事件；handler 只会收到其他节点产生的事件。
func (r *Relay) SubscribeRooms(handler func(env *Envelope)) error {
	if r == nil || r.nc == nil {
		return nil
	}
	sub, err := r.nc.Subscribe(subjectPrefix+">", func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Warnf("[natsx] bad envelope subject=%s err=%v", m.Subject, err)
			return
		}
		if env.Origin == r.origin {
			return
		}
		handler(&env)
	})
	if err != nil {
		return errs.WrapMsg(err, "nats subscribe")
	}
	r.sub = sub
	return nil
}

// Close 优雅关闭
func (r *Relay) Close() {
	if r == nil || r.nc == nil {
		return
	}
	if r.sub != nil {
		_ = r.sub.Drain()
	}
	_ = r.nc.Drain()
}
