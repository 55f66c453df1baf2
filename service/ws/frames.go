package ws

import (
	"encoding/json"
	"time"

	"TripBoard/service/room"
	errs "TripBoard/tools/errs"
)

// ===== 帧类型 =====

// client -> server
const (
	FrameJoinRoom     = "join_room"
	FrameLeaveRoom    = "leave_room"
	FrameSendMessage  = "send_message"
	FrameTypingStart  = "typing_start"
	FrameTypingStop   = "typing_stop"
	FrameStartEditing = "start_editing"
	FrameStopEditing  = "stop_editing"
)

// server -> client（协调器事件见各 service 包的 Event* 常量）
const (
	EventConnected  = "connected"
	EventKicked     = "kicked" // 新连接顶掉旧连接
	EventRoomJoined = "room_joined"
	EventRoomLeft   = "room_left"
	EventSendAck    = "send_ack"
	EventError      = "error"
)

// Frame 上行帧。payload 保持动态 map，由各 handler 用 decode 包转成业务负载。
type Frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errs.New("frame missing type")
	}
	return f, nil
}

// ServerFrame 下行帧
type ServerFrame struct {
	Type    string `json:"type"`
	Ts      int64  `json:"ts"`
	Payload any    `json:"payload,omitempty"`
}

// MarshalEvent 构造一帧下行事件。序列化失败只可能是编程错误，返回 nil 由上层丢弃。
func MarshalEvent(event string, payload any) []byte {
	data, err := json.Marshal(ServerFrame{Type: event, Ts: time.Now().UnixMilli(), Payload: payload})
	if err != nil {
		return nil
	}
	return data
}

// ===== 上行负载 =====

type JoinPayload struct {
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

type EditingPayload struct {
	RoomID string `json:"roomId"`
	NoteID string `json:"noteId"`
}

// ===== 下行负载 =====

type ConnectedPayload struct {
	ConnID          string `json:"connId"`
	NodeID          string `json:"nodeId"`
	UserID          string `json:"userId"`
	PingIntervalSec int    `json:"pingIntervalSec"`
}

type RoomJoinedPayload struct {
	RoomID   string        `json:"roomId"`
	RoomType string        `json:"roomType"`
	Roster   []room.Member `json:"roster"`
}

type RoomLeftPayload struct {
	RoomID string `json:"roomId"`
}

// SendAckPayload 发送回执。落库失败时 ok=false 且不会有任何 new_message 广播；
// 是否重试由客户端决定（服务端不自动重试，避免重复落库）。
type SendAckPayload struct {
	OK          bool   `json:"ok"`
	ClientMsgID string `json:"clientMsgId,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
	SequenceNo  int64  `json:"sequenceNo,omitempty"`
	Code        int    `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Ref  string `json:"ref,omitempty"` // 触发错误的上行帧类型
}
