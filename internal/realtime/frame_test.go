package realtime

import (
	"encoding/json"
	"testing"
)

// Test envelope decoding and validation
func TestDecodeFrame(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"type":"new_message","data":{"conversationId":5,"message":{"content":"hi"}}}`))
	if err != nil {
		t.Fatalf("Valid frame failed to decode: %v", err)
	}
	if frame.Type != FrameTypeNewMessage {
		t.Errorf("Expected new_message, got %s", frame.Type)
	}

	var data NewMessageData
	if err := json.Unmarshal(frame.Data, &data); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if data.ConversationID != 5 {
		t.Errorf("Expected conversationId 5, got %d", data.ConversationID)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `garbage`},
		{"missing type", `{"data":{}}`},
		{"empty type", `{"type":"","data":{}}`},
		{"unknown type", `{"type":"mystery","data":{}}`},
	}
	for _, tc := range cases {
		if _, err := DecodeFrame([]byte(tc.raw)); err == nil {
			t.Errorf("%s: expected a decode error", tc.name)
		}
	}
}

// Test that call frames forward their data untouched
func TestCallFramePassthrough(t *testing.T) {
	raw := json.RawMessage(`{"target":7,"signal":{"candidate":"x"}}`)
	frame := NewCallFrame(FrameTypeCallSignal, raw)

	encoded, err := frame.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}
	if string(decoded.Data) != string(raw) {
		t.Errorf("Call payload was altered: %s", decoded.Data)
	}
}

func TestFrameTypeValidity(t *testing.T) {
	valid := []FrameType{
		FrameTypeAuthenticate, FrameTypeNewMessage, FrameTypeUserTyping,
		FrameTypeCallSignal, FrameTypeCallEnded, FrameTypeUserStatus,
		FrameTypeCourrierMessage,
	}
	for _, ft := range valid {
		if !ft.IsValid() {
			t.Errorf("%s should be valid", ft)
		}
	}
	if FrameType("heartbeat").IsValid() {
		t.Error("Unknown type should be invalid")
	}
}
