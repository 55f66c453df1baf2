package ws

import (
	"encoding/json"
	"testing"
)

func TestParseFrame(t *testing.T) {
	raw := []byte(`{"type":"join_room","payload":{"roomId":"trip-42","roomType":"conversation"}}`)
	f, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Type != FrameJoinRoom {
		t.Fatalf("type = %q", f.Type)
	}
	if f.Payload["roomId"] != "trip-42" {
		t.Fatalf("payload = %+v", f.Payload)
	}
}

func TestParseFrameWithoutPayload(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"typing_stop"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Type != FrameTypingStop || f.Payload != nil {
		t.Fatalf("frame = %+v", f)
	}
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	if _, err := ParseFrame([]byte(`{not json`)); err == nil {
		t.Fatal("malformed json must fail")
	}
	if _, err := ParseFrame([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("frame without type must fail")
	}
}

func TestMarshalEventShape(t *testing.T) {
	raw := MarshalEvent(EventRoomLeft, RoomLeftPayload{RoomID: "trip-42"})
	if raw == nil {
		t.Fatal("marshal returned nil")
	}

	var got struct {
		Type    string          `json:"type"`
		Ts      int64           `json:"ts"`
		Payload RoomLeftPayload `json:"payload"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventRoomLeft || got.Ts == 0 || got.Payload.RoomID != "trip-42" {
		t.Fatalf("frame = %+v", got)
	}
}

func TestSendAckOmitsZeroFields(t *testing.T) {
	raw, err := json.Marshal(SendAckPayload{OK: true, MessageID: "m1", SequenceNo: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["error"]; ok {
		t.Fatal("success ack must not carry an error field")
	}
	if _, ok := m["code"]; ok {
		t.Fatal("success ack must not carry a code field")
	}
	if m["sequenceNo"].(float64) != 7 {
		t.Fatalf("ack = %v", m)
	}
}
