package ws

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"TripBoard/global"
	"TripBoard/logger"
	"TripBoard/service/storage"
	errs "TripBoard/tools/errs"
	"TripBoard/tools/ids"
	"TripBoard/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS 实时入口：先验凭证再升级，随后进入读循环。
// 凭证无效只影响本次握手；读到的坏帧只影响该帧，连接照常。
func (s *Server) HandleWS(c *gin.Context) {
	token := extractToken(c)
	identity, err := s.Authenticate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errs.ErrUnauthenticated)
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed user=%s err=%v", identity.UserID, err)
		return
	}

	sess := global.NewSession(ids.GenerateString(), identity.UserID, identity.DisplayName, identity.AvatarRef)
	client := NewClient(sess, wsConn, s.conf.SendQueueSize)

	// 同一用户新连接顶掉旧连接
	if old := s.conns.Bind(client); old != nil {
		s.sendTo(old, EventKicked, gin.H{"reason": "superseded by a newer connection"})
		logger.Infof("[ws] supersede user=%s old=%s new=%s", sess.UserID, old.ConnID, client.ConnID)
		// 给写协程一点时间送出 kicked 帧
		time.AfterFunc(200*time.Millisecond, old.Close)
	}

	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := storage.PresenceOnline(ctx, sess.UserID, s.conf.NodeID, s.conf.PresenceTTL); err != nil {
			logger.Warnf("[ws] presence online user=%s err=%v", sess.UserID, err)
		}
	})

	wsConn.SetPongHandler(func(string) error {
		_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
		// pong 顺带续 presence 镜像
		safe.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = storage.PresenceOnline(ctx, sess.UserID, s.conf.NodeID, s.conf.PresenceTTL)
		})
		return nil
	})
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))

	go client.writePump()

	s.sendTo(client, EventConnected, ConnectedPayload{
		ConnID:          client.ConnID,
		NodeID:          s.conf.NodeID,
		UserID:          sess.UserID,
		PingIntervalSec: int(pingPeriod / time.Second),
	})

	s.readLoop(client)
	s.cleanup(client)
}

func (s *Server) readLoop(client *Client) {
	for {
		mt, data, rerr := client.WS.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		h := s.disp.GetHandler(f.Type)
		if h == nil {
			// 未知类型：丢帧告警，连接保持
			logger.Warnf("[ws] no handler for frame type=%s conn=%s", f.Type, client.ConnID)
			continue
		}

		if err := h.Handle(&Context{S: s, Sess: client.Sess, Client: client}, f); err != nil {
			code := errs.CodeInternal
			msg := "internal error"
			if e, ok := errs.Unwrap(err).(*errs.CodeError); ok {
				code, msg = e.Code, e.Msg
			}
			logger.Infof("[ws] frame rejected type=%s conn=%s err=%v", f.Type, client.ConnID, err)
			s.sendTo(client, EventError, ErrorPayload{Code: code, Msg: msg, Ref: f.Type})
		}
	}
}

func extractToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
