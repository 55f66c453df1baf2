package model

const MessageTableName = "message"

// MessageModel 是一条会话消息的主干数据（消息本体，持久化）。
type MessageModel struct {
	// 路由/标识
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	ServerMsgID    string `bson:"server_msg_id" json:"messageId"`            // 服务端分配的消息ID（雪花）
	ClientMsgID    string `bson:"client_msg_id,omitempty" json:"clientMsgId,omitempty"` // 客户端幂等/回显去重ID
	SenderID       string `bson:"sender_id" json:"senderId"`
	SenderName     string `bson:"sender_name" json:"senderName"` // 发送者昵称（快照）

	// 类型/内容
	MessageType string   `bson:"message_type" json:"messageType"` // text/image/system...
	Content     string   `bson:"content" json:"content"`
	Attachments []string `bson:"attachments,omitempty" json:"attachments,omitempty"` // 附件引用（上传本身在外部）
	ReplyTo     string   `bson:"reply_to,omitempty" json:"replyTo,omitempty"`

	// 序号/时间
	Seq        int64 `bson:"seq" json:"sequenceNo"`         // 会话内自增序列（顺序/补偿拉取的依据）
	CreateTime int64 `bson:"create_time" json:"createdAt"` // Unix ms
}
