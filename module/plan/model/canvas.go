package model

const CanvasItemTableName = "canvas_item"

// 画板元素类型
const (
	CanvasKindNote = "note"
	CanvasKindPin  = "pin"
	CanvasKindLeg  = "leg" // 行程段
)

type Position struct {
	X float64 `bson:"x" json:"x"`
	Y float64 `bson:"y" json:"y"`
}

// CanvasItemModel 是共享画板上的一个元素。
// 实时层只对它做编辑锁提示，内容读写全部走这里（REST + Mongo）。
type CanvasItemModel struct {
	ItemID    string   `bson:"item_id" json:"itemId"`
	RoomID    string   `bson:"room_id" json:"roomId"`
	Kind      string   `bson:"kind" json:"kind"`
	Title     string   `bson:"title" json:"title"`
	Body      string   `bson:"body,omitempty" json:"body,omitempty"`
	Position  Position `bson:"position" json:"position"`
	UpdatedBy string   `bson:"updated_by" json:"updatedBy"`
	CreatedAt int64    `bson:"created_at" json:"createdAt"` // Unix ms
	UpdatedAt int64    `bson:"updated_at" json:"updatedAt"` // Unix ms
}
