package relay

import (
	"context"
	"strings"
	"sync"
	"time"

	"TripBoard/global"
	"TripBoard/logger"
	"TripBoard/module/plan/model"
	errs "TripBoard/tools/errs"
	"TripBoard/tools/ids"
	"TripBoard/tools/safe"
)

const EventNewMessage = "new_message"

// MessageStore 是写穿的持久化协作方；也是重启后序列水位的唯一来源。
type MessageStore interface {
	Insert(ctx context.Context, msg *model.MessageModel) error
	LastSeq(ctx context.Context, conversationID string) (int64, error)
}

// Membership 由房间注册表提供：发消息前校验成员资格，成功后取广播目标。
type Membership interface {
	IsMember(roomID, userID string) bool
	Members(roomID string) []*global.Session
}

type Notifier interface {
	Notify(targets []*global.Session, event string, payload any)
}

// Journal 是可选的下游流水（Kafka）；失败只记日志，不影响发送结果。
type Journal interface {
	Publish(msg *model.MessageModel) error
}

// SendInput 对应 send_message 帧的负载。
type SendInput struct {
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	MessageType    string   `json:"messageType"`
	Attachments    []string `json:"attachments,omitempty"`
	ReplyTo        string   `json:"replyTo,omitempty"`
	ClientMsgID    string   `json:"clientMsgId,omitempty"` // 客户端回显去重ID，原样带回
}

// convSeq 是单个会话的发号权威：同会话并发发送在这把锁上串行。
type convSeq struct {
	mu     sync.Mutex
	loaded bool
	last   int64
}

// Relay 负责消息路径：成员校验 → 发号 → 写穿落库 → 广播（含发送者）。
// 落库失败不广播、不占号，序列对客户端严格递增且无空洞。
type Relay struct {
	store    MessageStore
	rooms    Membership
	notifier Notifier
	journal  Journal // 可为 nil

	seqs sync.Map // conversationID -> *convSeq
}

func NewRelay(store MessageStore, rooms Membership, notifier Notifier, journal Journal) *Relay {
	return &Relay{store: store, rooms: rooms, notifier: notifier, journal: journal}
}

func (r *Relay) seqFor(conversationID string) *convSeq {
	if v, ok := r.seqs.Load(conversationID); ok {
		return v.(*convSeq)
	}
	v, _ := r.seqs.LoadOrStore(conversationID, &convSeq{})
	return v.(*convSeq)
}

// Send 处理一条 send_message。超时由调用方通过 ctx 控制。
func (r *Relay) Send(ctx context.Context, sess *global.Session, in SendInput) (*model.MessageModel, error) {
	if strings.TrimSpace(in.ConversationID) == "" || in.Content == "" {
		return nil, errs.ErrArgs.WrapMsg("send", "conv", in.ConversationID)
	}
	if !r.rooms.IsMember(in.ConversationID, sess.UserID) {
		return nil, errs.ErrNotAuthorized.WrapMsg("send", "user", sess.UserID, "conv", in.ConversationID)
	}
	if in.MessageType == "" {
		in.MessageType = "text"
	}

	cs := r.seqFor(in.ConversationID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.loaded {
		last, err := r.store.LastSeq(ctx, in.ConversationID)
		if err != nil {
			return nil, errs.ErrPersistFailed.WrapMsg("load last seq", "conv", in.ConversationID, "err", err)
		}
		cs.last = last
		cs.loaded = true
	}

	msg := &model.MessageModel{
		ConversationID: in.ConversationID,
		ServerMsgID:    ids.GenerateString(),
		ClientMsgID:    in.ClientMsgID,
		SenderID:       sess.UserID,
		SenderName:     sess.DisplayName,
		MessageType:    in.MessageType,
		Content:        in.Content,
		Attachments:    in.Attachments,
		ReplyTo:        in.ReplyTo,
		Seq:            cs.last + 1,
		CreateTime:     time.Now().UnixMilli(),
	}

	// 写穿：落库成功之前不占号、不广播——不存在半可见消息。
	if err := r.store.Insert(ctx, msg); err != nil {
		logger.Errorf("[relay] persist failed conv=%s seq=%d err=%v", msg.ConversationID, msg.Seq, err)
		return nil, errs.ErrPersistFailed.WrapMsg("insert", "conv", in.ConversationID)
	}
	cs.last = msg.Seq

	// 仍持有发号锁：同会话的广播入队顺序 == seq 顺序。
	targets := r.rooms.Members(in.ConversationID)
	if len(targets) > 0 && r.notifier != nil {
		r.notifier.Notify(targets, EventNewMessage, msg)
	}

	if r.journal != nil {
		m := msg
		safe.Go(func() {
			if err := r.journal.Publish(m); err != nil {
				logger.Warnf("[relay] journal publish failed conv=%s seq=%d err=%v", m.ConversationID, m.Seq, err)
			}
		})
	}
	return msg, nil
}
