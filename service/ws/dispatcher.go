package ws

import (
	"TripBoard/global"
)

// Context 一次帧处理的上下文
type Context struct {
	S      *Server
	Sess   *global.Session
	Client *Client
}

type Handler interface {
	Type() string
	Handle(ctx *Context, f *Frame) error
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

// GetHandler 未注册的类型返回 nil；上层照规矩丢帧并告警，连接不断。
func (d *Dispatcher) GetHandler(frameType string) Handler {
	return d.handlers[frameType]
}
