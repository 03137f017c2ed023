package realtime

import (
	"encoding/json"
	"fmt"
)

// FrameType represents the type of a realtime frame using a custom enum type
// for better type safety than raw strings.
type FrameType string

// Frame types exchanged over the transport.
const (
	// Inbound
	FrameTypeAuthenticate FrameType = "authenticate"
	FrameTypeNewMessage   FrameType = "new_message"
	FrameTypeUserTyping   FrameType = "user_typing"
	FrameTypeCallSignal   FrameType = "call_signal"
	FrameTypeCallEnded    FrameType = "call_ended"

	// Outbound only
	FrameTypeUserStatus      FrameType = "user_status"
	FrameTypeCourrierMessage FrameType = "courrier_message"
)

// String returns the string representation of the FrameType.
func (ft FrameType) String() string {
	return string(ft)
}

// IsValid checks if the FrameType is a known enum value.
func (ft FrameType) IsValid() bool {
	switch ft {
	case FrameTypeAuthenticate, FrameTypeNewMessage, FrameTypeUserTyping,
		FrameTypeCallSignal, FrameTypeCallEnded, FrameTypeUserStatus,
		FrameTypeCourrierMessage:
		return true
	default:
		return false
	}
}

// Frame is one discrete message unit exchanged over a connection. Data is
// decoded per frame type into one of the payload structs below.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Validate checks the envelope before per-type decoding.
func (f *Frame) Validate() error {
	if f.Type == "" {
		return fmt.Errorf("frame type is required")
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("unknown frame type: %s", f.Type)
	}
	return nil
}

// DecodeFrame parses a raw transport message into a Frame.
func DecodeFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Encode serializes the frame for the wire.
func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// Per-type payload shapes.

type AuthenticateData struct {
	UserID uint `json:"userId"`
}

type NewMessageData struct {
	Message        json.RawMessage `json:"message"`
	ConversationID uint            `json:"conversationId"`
}

type TypingData struct {
	UserID         uint `json:"userId,omitempty"`
	ConversationID uint `json:"conversationId"`
	IsTyping       bool `json:"isTyping"`
}

type CallSignalData struct {
	Target uint            `json:"target"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

type StatusData struct {
	UserID uint   `json:"userId"`
	Status string `json:"status"`
}

// Frame constructors for the outbound direction.

func newFrame(t FrameType, data interface{}) Frame {
	raw, err := json.Marshal(data)
	if err != nil {
		// The payload structs above always marshal; raw data passes through.
		raw = []byte("{}")
	}
	return Frame{Type: t, Data: raw}
}

// NewMessageFrame wraps a persisted message payload for delivery.
func NewMessageFrame(message json.RawMessage, conversationID uint) Frame {
	return newFrame(FrameTypeNewMessage, NewMessageData{
		Message:        message,
		ConversationID: conversationID,
	})
}

// NewTypingFrame carries a typing indicator to the other participant.
func NewTypingFrame(userID, conversationID uint, isTyping bool) Frame {
	return newFrame(FrameTypeUserTyping, TypingData{
		UserID:         userID,
		ConversationID: conversationID,
		IsTyping:       isTyping,
	})
}

// NewStatusFrame announces a presence transition.
func NewStatusFrame(userID uint, status string) Frame {
	return newFrame(FrameTypeUserStatus, StatusData{
		UserID: userID,
		Status: status,
	})
}

// NewCourrierFrame wraps a share notification payload.
func NewCourrierFrame(payload interface{}) Frame {
	return newFrame(FrameTypeCourrierMessage, payload)
}

// NewCallFrame forwards call signaling data verbatim; outbound call frames
// mirror the inbound shape.
func NewCallFrame(t FrameType, data json.RawMessage) Frame {
	return Frame{Type: t, Data: data}
}
