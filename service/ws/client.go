package ws

import (
	"sync"
	"time"

	"TripBoard/global"
	"TripBoard/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 75 * time.Second
	pingPeriod = 25 * time.Second
)

// Client 一条网关连接：会话身份 + 独立发送队列，
// 由唯一的写协程消费（读写分离，互不阻塞）。
type Client struct {
	ConnID string
	Sess   *global.Session
	WS     *websocket.Conn
	Send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(sess *global.Session, wsConn *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: sess.ConnID,
		Sess:   sess,
		WS:     wsConn,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// enqueue 非阻塞入队；慢客户端丢帧（临态事件允许丢，耐久消息走历史补偿）。
func (c *Client) enqueue(payload []byte) {
	if payload == nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
		logger.Warnf("[ws] send queue full, drop frame conn=%s user=%s", c.ConnID, c.Sess.UserID)
	}
}

// Close 幂等关闭；写协程随 done 退出。
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.WS.Close()
	})
}

// writePump 唯一写者：消费发送队列并按周期发 ping。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("[ws] write failed conn=" + c.ConnID)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
