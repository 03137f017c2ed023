package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */
// Conversation is a direct exchange between exactly two users.
type Conversation struct {
	gorm.Model
	CreatorID     uint `gorm:"not null;index" json:"creatorId"`
	ParticipantID uint `gorm:"not null;index" json:"participantId"`

	Creator     User `gorm:"foreignKey:CreatorID" json:"-"`
	Participant User `gorm:"foreignKey:ParticipantID" json:"-"`
}

// OtherParticipant returns the member of the conversation that is not userID.
// The second result is false when userID is not a member at all.
func (c *Conversation) OtherParticipant(userID uint) (uint, bool) {
	switch userID {
	case c.CreatorID:
		return c.ParticipantID, true
	case c.ParticipantID:
		return c.CreatorID, true
	}
	return 0, false
}

// Message represents a persisted chat message inside a conversation.
type Message struct {
	gorm.Model
	ConversationID uint    `gorm:"not null;index" json:"conversationId"`
	SenderID       uint    `gorm:"not null" json:"senderId"`
	Content        *string `json:"content,omitempty"`
	URL            *string `json:"url,omitempty"`
	FileName       *string `json:"fileName,omitempty"`

	Sender       User         `gorm:"foreignKey:SenderID" json:"-"`
	Conversation Conversation `gorm:"foreignKey:ConversationID" json:"-"`
}

/** -------------------- DTOs -------------------- */
type CreateConversationRequest struct {
	ParticipantID uint `json:"participantId" binding:"required"`
}

type SendMessageRequest struct {
	Content  *string `json:"content,omitempty"`
	URL      *string `json:"url,omitempty"`
	FileName *string `json:"fileName,omitempty"`
}

type MessageResponse struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversationId"`
	SenderID       uint      `json:"senderId"`
	Content        *string   `json:"content,omitempty"`
	URL            *string   `json:"url,omitempty"`
	FileName       *string   `json:"fileName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ToResponse maps a Message entity to its API shape.
func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		URL:            m.URL,
		FileName:       m.FileName,
		CreatedAt:      m.CreatedAt,
	}
}
