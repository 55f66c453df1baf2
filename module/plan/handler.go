package plan

import (
	"net/http"
	"strconv"

	"TripBoard/global"
	"TripBoard/middleware"
	midsec "TripBoard/middleware/security"
	"TripBoard/module/plan/model"
	"TripBoard/module/plan/store"
	"TripBoard/service/room"
	"TripBoard/service/ws"
	errs "TripBoard/tools/errs"
	security "TripBoard/tools/security"

	"github.com/gin-gonic/gin"
)

// Handler 是 REST 兜底面：实时通道不可用时的 roster 查询、历史分页、
// 画板读写和幂等 join/leave 都走这里。
type Handler struct {
	gw       *ws.Server
	messages *store.MessageStore
	canvas   *store.CanvasStore
	secret   []byte
}

func NewHandler(gw *ws.Server, messages *store.MessageStore, canvas *store.CanvasStore, secret []byte) *Handler {
	return &Handler{gw: gw, messages: messages, canvas: canvas, secret: secret}
}

func (h *Handler) Register(r *gin.Engine) {
	opt := middleware.RouteOpt{IsAuth: true, Secret: h.secret}
	open := middleware.RouteOpt{}

	v1 := r.Group("/api/v1")
	middleware.POST(v1, "/auth/login", h.HandleLogin, open)
	middleware.GET(v1, "/rooms/:roomId/roster", h.HandleRoster, opt)
	middleware.POST(v1, "/rooms/:roomId/join", h.HandleJoin, opt)
	middleware.POST(v1, "/rooms/:roomId/leave", h.HandleLeave, opt)
	middleware.GET(v1, "/conversations/:convId/messages", h.HandleHistory, opt)
	middleware.GET(v1, "/canvas/:roomId/items", h.HandleCanvasList, opt)
	middleware.PUT(v1, "/canvas/:roomId/items/:itemId", h.HandleCanvasUpsert, opt)
	middleware.DELETE(v1, "/canvas/:roomId/items/:itemId", h.HandleCanvasDelete, opt)
}

type loginReq struct {
	UserID      string `json:"userId" binding:"required"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// HandleLogin 开发用的凭证交换：真正的账号体系是外部协作方，
// 这里按请求身份直接签发 JWT。
func (h *Handler) HandleLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, global.Fail(errs.CodeArgs, "userId required"))
		return
	}
	token, expireAt, err := security.Generate(security.DefaultOptions(h.secret), security.Identity{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, global.Fail(errs.CodeInternal, "sign token"))
		return
	}
	c.JSON(http.StatusOK, global.Success(gin.H{
		"token":    token,
		"expireAt": expireAt.UnixMilli(),
	}))
}

// HandleRoster 实时通道不可用时按需查 roster。
func (h *Handler) HandleRoster(c *gin.Context) {
	roomID := c.Param("roomId")
	c.JSON(http.StatusOK, global.Success(gin.H{
		"roomId": roomID,
		"roster": h.gw.Rooms().Roster(roomID),
	}))
}

type joinReq struct {
	RoomType string `json:"roomType"`
}

// HandleJoin 幂等 join：有活跃长连接时把它加进房间；没有也不报错，
// 返回当前 roster（成员资格是会话级的，没有连接就没有成员）。
func (h *Handler) HandleJoin(c *gin.Context) {
	roomID := c.Param("roomId")
	userID := c.GetString(midsec.CtxUserIDKey)

	var req joinReq
	_ = c.ShouldBindJSON(&req)
	if req.RoomType != room.TypeDashboard && req.RoomType != room.TypeConversation {
		req.RoomType = room.TypeConversation
	}

	if sess := h.gw.SessionOf(userID); sess != nil {
		roster := h.gw.Rooms().Join(roomID, req.RoomType, sess)
		c.JSON(http.StatusOK, global.Success(gin.H{"roomId": roomID, "roster": roster}))
		return
	}
	c.JSON(http.StatusOK, global.Success(gin.H{"roomId": roomID, "roster": h.gw.Rooms().Roster(roomID)}))
}

// HandleLeave 幂等 leave。
func (h *Handler) HandleLeave(c *gin.Context) {
	roomID := c.Param("roomId")
	userID := c.GetString(midsec.CtxUserIDKey)

	if sess := h.gw.SessionOf(userID); sess != nil {
		h.gw.Rooms().Leave(roomID, sess)
	}
	c.JSON(http.StatusOK, global.Success(gin.H{"roomId": roomID}))
}

// HandleHistory 会话历史，seq 倒序分页（最新在前）。
// 重连补缺口走这里：拉完历史，再接着收 rejoin 之后的新事件。
func (h *Handler) HandleHistory(c *gin.Context) {
	convID := c.Param("convId")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	beforeSeq, _ := strconv.ParseInt(c.DefaultQuery("before_seq", "0"), 10, 64)

	msgs, err := h.messages.ListNewest(c.Request.Context(), convID, beforeSeq, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, global.Fail(errs.CodeInternal, "list messages"))
		return
	}
	if msgs == nil {
		msgs = []*model.MessageModel{}
	}
	c.JSON(http.StatusOK, global.Success(gin.H{
		"conversationId": convID,
		"messages":       msgs,
	}))
}

// HandleCanvasList 画板全量（重连补水用）。
func (h *Handler) HandleCanvasList(c *gin.Context) {
	roomID := c.Param("roomId")
	items, err := h.canvas.ListByRoom(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, global.Fail(errs.CodeInternal, "list canvas"))
		return
	}
	if items == nil {
		items = []*model.CanvasItemModel{}
	}
	c.JSON(http.StatusOK, global.Success(gin.H{"roomId": roomID, "items": items}))
}

type canvasUpsertReq struct {
	Kind     string         `json:"kind"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Position model.Position `json:"position"`
}

// HandleCanvasUpsert 编辑锁只是提示，这里不做互斥，最后写入者生效。
func (h *Handler) HandleCanvasUpsert(c *gin.Context) {
	var req canvasUpsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, global.Fail(errs.CodeArgs, "bad canvas item"))
		return
	}
	item := &model.CanvasItemModel{
		RoomID:    c.Param("roomId"),
		ItemID:    c.Param("itemId"),
		Kind:      req.Kind,
		Title:     req.Title,
		Body:      req.Body,
		Position:  req.Position,
		UpdatedBy: c.GetString(midsec.CtxUserIDKey),
	}
	if err := h.canvas.Upsert(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, global.Fail(errs.CodeInternal, "upsert canvas"))
		return
	}
	c.JSON(http.StatusOK, global.Success(item))
}

func (h *Handler) HandleCanvasDelete(c *gin.Context) {
	if err := h.canvas.Delete(c.Request.Context(), c.Param("roomId"), c.Param("itemId")); err != nil {
		c.JSON(http.StatusInternalServerError, global.Fail(errs.CodeInternal, "delete canvas"))
		return
	}
	c.JSON(http.StatusOK, global.Success(nil))
}
