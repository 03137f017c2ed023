package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"rony-server/internal/models"
)

// ConversationStore resolves conversation participants for routing. A missing
// conversation is reported as (nil, nil). Implemented by the gorm repository.
type ConversationStore interface {
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
}

// Router resolves domain events to their recipients and delivers them to
// whatever live connections those recipients currently hold. Delivery is
// best-effort: an offline recipient simply receives nothing, the durable
// record lives in storage.
type Router struct {
	registry      *Registry
	conversations ConversationStore
}

func NewRouter(registry *Registry, conversations ConversationStore) *Router {
	return &Router{
		registry:      registry,
		conversations: conversations,
	}
}

// RouteConversationMessage delivers a new_message frame to the conversation
// participant that is not the sender. The message payload is forwarded as
// received; persistence happens on the storage path, not here.
func (rt *Router) RouteConversationMessage(ctx context.Context, conversationID, senderID uint, message json.RawMessage) {
	recipient, ok := rt.resolveRecipient(ctx, conversationID, senderID)
	if !ok {
		return
	}
	rt.deliver(recipient, NewMessageFrame(message, conversationID))
}

// RouteTyping delivers a typing indicator to the other participant.
func (rt *Router) RouteTyping(ctx context.Context, conversationID, senderID uint, isTyping bool) {
	recipient, ok := rt.resolveRecipient(ctx, conversationID, senderID)
	if !ok {
		return
	}
	rt.deliver(recipient, NewTypingFrame(senderID, conversationID, isTyping))
}

// RouteCallSignal forwards call signaling data to an explicit target user.
func (rt *Router) RouteCallSignal(targetUserID uint, data json.RawMessage) {
	rt.deliver(targetUserID, NewCallFrame(FrameTypeCallSignal, data))
}

// RouteCallEnded notifies an explicit target that a call was terminated.
func (rt *Router) RouteCallEnded(targetUserID uint, data json.RawMessage) {
	rt.deliver(targetUserID, NewCallFrame(FrameTypeCallEnded, data))
}

// BroadcastStatus fans a presence transition out to every registered
// connection across all users, not just the user's contacts.
func (rt *Router) BroadcastStatus(userID uint, status string) {
	frame := NewStatusFrame(userID, status)
	for _, c := range rt.registry.Snapshot() {
		rt.push(c, frame)
	}
}

// BroadcastCourrierNotification wakes one recipient's connections up about a
// new share, instead of waiting for their next inbox poll.
func (rt *Router) BroadcastCourrierNotification(recipientID uint, payload interface{}) {
	rt.deliver(recipientID, NewCourrierFrame(payload))
}

// resolveRecipient loads the conversation and computes the other participant.
// Any failure drops the event: routing is non-critical by contract.
func (rt *Router) resolveRecipient(ctx context.Context, conversationID, senderID uint) (uint, bool) {
	conv, err := rt.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		slog.Error("Conversation lookup failed, dropping event", "conversationID", conversationID, "error", err)
		return 0, false
	}
	if conv == nil {
		slog.Debug("Conversation not found, dropping event", "conversationID", conversationID)
		return 0, false
	}

	recipient, ok := conv.OtherParticipant(senderID)
	if !ok {
		slog.Warn("Sender not a conversation participant, dropping event",
			"conversationID", conversationID, "senderID", senderID)
		return 0, false
	}
	return recipient, true
}

// deliver pushes the frame to each of the target's live connections. No
// connection means the event is silently dropped.
func (rt *Router) deliver(userID uint, frame Frame) {
	for _, c := range rt.registry.Lookup(userID) {
		rt.push(c, frame)
	}
}

func (rt *Router) push(c *Client, frame Frame) {
	if err := c.SendFrame(frame); err != nil {
		slog.Debug("Frame delivery failed", "clientID", c.ID(), "type", frame.Type, "error", err)
	}
}
