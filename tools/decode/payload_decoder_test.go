package decode

import "testing"

type joinPayload struct {
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
}

type sendPayload struct {
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	Limit          int      `json:"limit"`
	BeforeSeq      int64    `json:"beforeSeq"`
	Attachments    []string `json:"attachments"`
}

func TestDecodePayloadByJSONTag(t *testing.T) {
	m := map[string]any{"roomId": "trip-42", "roomType": "conversation"}
	got, err := DecodePayload[joinPayload](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RoomID != "trip-42" || got.RoomType != "conversation" {
		t.Fatalf("decoded %+v", got)
	}
}

func TestDecodePayloadFloatToInt(t *testing.T) {
	// JSON 数字经 map[string]any 一律是 float64
	m := map[string]any{
		"conversationId": "conv-1",
		"content":        "hi",
		"limit":          float64(50),
		"beforeSeq":      float64(120),
		"attachments":    []any{"a.png", "b.png"},
	}
	got, err := DecodePayload[sendPayload](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Limit != 50 || got.BeforeSeq != 120 {
		t.Fatalf("numeric fields %+v", got)
	}
	if len(got.Attachments) != 2 || got.Attachments[0] != "a.png" {
		t.Fatalf("attachments %+v", got.Attachments)
	}
}

func TestDecodePayloadNilMap(t *testing.T) {
	if _, err := DecodePayload[joinPayload](nil); err == nil {
		t.Fatal("nil payload must fail")
	}
}

func TestDecodeRaw(t *testing.T) {
	got, err := DecodeRaw[joinPayload]([]byte(`{"roomId":"trip-42"}`))
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if got.RoomID != "trip-42" {
		t.Fatalf("decoded %+v", got)
	}

	if _, err := DecodeRaw[joinPayload]([]byte(`not json`)); err == nil {
		t.Fatal("invalid json must fail")
	}
}

func TestDecodePayloadIgnoresUnknownFields(t *testing.T) {
	m := map[string]any{"roomId": "trip-42", "extra": true}
	got, err := DecodePayload[joinPayload](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RoomID != "trip-42" {
		t.Fatalf("decoded %+v", got)
	}
}
