package ws

import "testing"

type stubHandler struct {
	typ   string
	calls int
}

func (h *stubHandler) Type() string { return h.typ }

func (h *stubHandler) Handle(_ *Context, _ *Frame) error {
	h.calls++
	return nil
}

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewDispatcher()
	join := &stubHandler{typ: FrameJoinRoom}
	send := &stubHandler{typ: FrameSendMessage}
	d.Register(join)
	d.Register(send)

	h := d.GetHandler(FrameJoinRoom)
	if h == nil {
		t.Fatal("join handler not found")
	}
	if err := h.Handle(nil, &Frame{Type: FrameJoinRoom}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if join.calls != 1 || send.calls != 0 {
		t.Fatalf("calls join=%d send=%d", join.calls, send.calls)
	}
}

func TestDispatcherUnknownTypeIsNil(t *testing.T) {
	d := NewDispatcher()
	if d.GetHandler("no_such_frame") != nil {
		t.Fatal("unknown frame type must yield nil handler")
	}
}
