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

// CanvasStore 画板元素的 CRUD。编辑锁只是 UI 提示，这里不做互斥。
type CanvasStore struct {
	coll *mongo.Collection
}

func NewCanvasStore(db *mongo.Database) *CanvasStore {
	return &CanvasStore{coll: db.Collection(model.CanvasItemTableName)}
}

func (s *CanvasStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "item_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.Wrap(err)
}

// Upsert 以 (room_id, item_id) 为键覆盖写入。
func (s *CanvasStore) Upsert(ctx context.Context, item *model.CanvasItemModel) error {
	if item.RoomID == "" || item.ItemID == "" {
		return errs.ErrArgs.WrapMsg("upsert canvas item", "room", item.RoomID)
	}
	now := time.Now().UnixMilli()
	item.UpdatedAt = now

	filter := bson.M{"room_id": item.RoomID, "item_id": item.ItemID}
	update := bson.M{
		"$set": bson.M{
			"kind":       item.Kind,
			"title":      item.Title,
			"body":       item.Body,
			"position":   item.Position,
			"updated_by": item.UpdatedBy,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return errs.Wrap(err)
}

func (s *CanvasStore) Get(ctx context.Context, roomID, itemID string) (*model.CanvasItemModel, error) {
	var item model.CanvasItemModel
	err := s.coll.FindOne(ctx, bson.M{"room_id": roomID, "item_id": itemID}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &item, nil
}

// ListByRoom 全量拉取一个房间的画板（重连后的全量补水）。
func (s *CanvasStore) ListByRoom(ctx context.Context, roomID string) ([]*model.CanvasItemModel, error) {
	cur, err := s.coll.Find(ctx, bson.M{"room_id": roomID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)

	var out []*model.CanvasItemModel
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *CanvasStore) Delete(ctx context.Context, roomID, itemID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"room_id": roomID, "item_id": itemID})
	return errs.Wrap(err)
}
