package ws

import (
	"context"
	"time"

	"TripBoard/service/relay"
	"TripBoard/service/room"
	"TripBoard/tools/decode"
	errs "TripBoard/tools/errs"
)

const sendTimeout = 10 * time.Second

// ===== join_room =====

type joinHandler struct{}

func (joinHandler) Type() string { return FrameJoinRoom }

func (joinHandler) Handle(ctx *Context, f *Frame) error {
	p, err := decode.DecodePayload[JoinPayload](f.Payload)
	if err != nil {
		return errs.ErrArgs.WrapMsg("join_room", "err", err)
	}
	if p.RoomID == "" {
		return errs.ErrArgs.WrapMsg("join_room missing roomId")
	}
	if p.RoomType != room.TypeDashboard && p.RoomType != room.TypeConversation {
		p.RoomType = room.TypeConversation
	}

	// 重入等价于全新 join：返回新鲜 roster，事件从此刻起接续（不重放）。
	roster := ctx.S.rooms.Join(p.RoomID, p.RoomType, ctx.Sess)
	ctx.S.sendTo(ctx.Client, EventRoomJoined, RoomJoinedPayload{
		RoomID:   p.RoomID,
		RoomType: p.RoomType,
		Roster:   roster,
	})
	return nil
}

// ===== leave_room =====

type leaveHandler struct{}

func (leaveHandler) Type() string { return FrameLeaveRoom }

func (leaveHandler) Handle(ctx *Context, f *Frame) error {
	p, err := decode.DecodePayload[JoinPayload](f.Payload)
	if err != nil || p.RoomID == "" {
		return errs.ErrArgs.WrapMsg("leave_room")
	}
	// 未加入时的 leave 是无害空操作
	ctx.S.rooms.Leave(p.RoomID, ctx.Sess)
	ctx.S.sendTo(ctx.Client, EventRoomLeft, RoomLeftPayload{RoomID: p.RoomID})
	return nil
}

// ===== send_message =====

type sendHandler struct{}

func (sendHandler) Type() string { return FrameSendMessage }

func (sendHandler) Handle(ctx *Context, f *Frame) error {
	in, err := decode.DecodePayload[relay.SendInput](f.Payload)
	if err != nil {
		return errs.ErrArgs.WrapMsg("send_message", "err", err)
	}

	cctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg, err := ctx.S.relay.Send(cctx, ctx.Sess, *in)
	if err != nil {
		// 失败回执：没有落库也没有任何广播，是否重试由客户端决定
		code := errs.CodeInternal
		if e, ok := errs.Unwrap(err).(*errs.CodeError); ok {
			code = e.Code
		}
		ctx.S.sendTo(ctx.Client, EventSendAck, SendAckPayload{
			OK:          false,
			ClientMsgID: in.ClientMsgID,
			Code:        code,
			Error:       err.Error(),
		})
		return nil // 已用 ack 回告，不再追加 error 帧
	}

	ctx.S.sendTo(ctx.Client, EventSendAck, SendAckPayload{
		OK:          true,
		ClientMsgID: in.ClientMsgID,
		MessageID:   msg.ServerMsgID,
		SequenceNo:  msg.Seq,
	})
	return nil
}

// ===== typing_start / typing_stop =====

type typingStartHandler struct{}

func (typingStartHandler) Type() string { return FrameTypingStart }

func (typingStartHandler) Handle(ctx *Context, f *Frame) error {
	p, err := decode.DecodePayload[TypingPayload](f.Payload)
	if err != nil || p.ConversationID == "" {
		return errs.ErrArgs.WrapMsg("typing_start")
	}
	if !ctx.Sess.HasJoined(p.ConversationID) {
		return errs.ErrNotJoined.WrapMsg("typing_start", "conv", p.ConversationID)
	}
	ctx.S.typing.Start(p.ConversationID, ctx.Sess)
	return nil
}

type typingStopHandler struct{}

func (typingStopHandler) Type() string { return FrameTypingStop }

func (typingStopHandler) Handle(ctx *Context, f *Frame) error {
	p, err := decode.DecodePayload[TypingPayload](f.Payload)
	if err != nil || p.ConversationID == "" {
		return errs.ErrArgs.WrapMsg("typing_stop")
	}
	// 多余的 stop 无害，但未加入的房间一律拒
	if !ctx.Sess.HasJoined(p.ConversationID) {
		return errs.ErrNotJoined.WrapMsg("typing_stop", "conv", p.ConversationID)
	}
	ctx.S.typing.Stop(p.ConversationID, ctx.Sess)
	return nil
}

// ===== start_editing / stop_editing =====

type startEditingHandler struct{}

func (startEditingHandler) Type() string { return FrameStartEditing }

func (startEditingHandler) Handle(ctx *Context, f *Frame) error {
	p, err := decode.DecodePayload[EditingPayload](f.Payload)
	if err != nil || p.RoomID == "" || p.NoteID == "" {
		return errs.ErrArgs.WrapMsg("start_editing")
	}
	if !ctx.Sess.HasJoined(p.RoomID) {
		return errs.ErrNotJoined.WrapMsg("start_editing", "room", p.RoomID)
	}
	ctx.S.locks.Start(p.RoomID, p.NoteID, ctx.Sess)
	return nil
}

type stopEditingHandler struct{}

func (stopEditingHandler) Type() string { return FrameStopEditing }

func (stopEditingHandler) Handle(ctx *Context, f *Frame) error {
	p, err := decode.DecodePayload[EditingPayload](f.Payload)
	if err != nil || p.RoomID == "" || p.NoteID == "" {
		return errs.ErrArgs.WrapMsg("stop_editing")
	}
	if !ctx.Sess.HasJoined(p.RoomID) {
		return errs.ErrNotJoined.WrapMsg("stop_editing", "room", p.RoomID)
	}
	// 被顶替持有者迟到的 stop 在协调器里会被挡下
	ctx.S.locks.Stop(p.RoomID, p.NoteID, ctx.Sess)
	return nil
}
