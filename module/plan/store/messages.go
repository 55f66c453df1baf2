package store

import (
	"context"
	"time"

	"TripBoard/module/plan/model"
	errs "TripBoard/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageStore 是消息落库的唯一入口，也是重启后序列水位的唯一真相。
type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{coll: db.Collection(model.MessageTableName)}
}

// EnsureIndexes 建立 (conversation_id, seq) 唯一索引：同会话序号不允许重复。
func (s *MessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "seq", Value: -1},
		},
		Options: options.Index().SetUnique(true),
	})
	return errs.Wrap(err)
}

// Insert 写入一条已经分配好 seq 的消息。
func (s *MessageStore) Insert(ctx context.Context, msg *model.MessageModel) error {
	if msg.ConversationID == "" || msg.ServerMsgID == "" {
		return errs.ErrArgs.WrapMsg("insert message", "conv", msg.ConversationID)
	}
	_, err := s.coll.InsertOne(ctx, msg)
	return errs.Wrap(err)
}

// LastSeq 返回会话当前最大序号；会话不存在时为 0。
// 重启后内存计数器必须从这里播种，绝不能从 0 开始。
func (s *MessageStore) LastSeq(ctx context.Context, conversationID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.coll.FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return doc.Seq, nil
}

// ListNewest 按 seq 倒序分页拉取历史；beforeSeq<=0 表示从最新开始。
// 重连补偿走这里，不走实时重放。
func (s *MessageStore) ListNewest(ctx context.Context, conversationID string, beforeSeq int64, limit int64) ([]*model.MessageModel, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	filter := bson.M{"conversation_id": conversationID}
	if beforeSeq > 0 {
		filter["seq"] = bson.M{"$lt": beforeSeq}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(limit)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := s.coll.Find(cctx, filter, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(cctx)

	var out []*model.MessageModel
	if err := cur.All(cctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}
