package models

import (
	"time"

	"gorm.io/gorm"
)

// CourrierKind discriminates what was shared with a recipient.
type CourrierKind string

const (
	CourrierKindFile   CourrierKind = "file"
	CourrierKindFolder CourrierKind = "folder"
	CourrierKindEvent  CourrierKind = "event"
)

// IsValid checks if the CourrierKind is a known value.
func (k CourrierKind) IsValid() bool {
	switch k {
	case CourrierKindFile, CourrierKindFolder, CourrierKindEvent:
		return true
	default:
		return false
	}
}

/** --------------------ENTITIES-------------------- */
// CourrierItem records a share (file, folder or calendar event) sent from one
// user to another. The realtime notification is best-effort; the row is the
// durable record the recipient's inbox polls.
type CourrierItem struct {
	gorm.Model
	SenderID    uint         `gorm:"not null;index" json:"senderId"`
	RecipientID uint         `gorm:"not null;index" json:"recipientId"`
	Kind        CourrierKind `gorm:"not null" json:"kind"`
	Subject     string       `json:"subject"`
	// ObjectKey points into object storage for kind == file.
	ObjectKey string `json:"objectKey,omitempty"`
	// ReferenceID points at the shared folder or event for the other kinds.
	ReferenceID *uint `json:"referenceId,omitempty"`

	Sender    User `gorm:"foreignKey:SenderID" json:"-"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"-"`
}

/** -------------------- DTOs -------------------- */
type ShareRequest struct {
	RecipientID uint         `json:"recipientId" binding:"required"`
	Kind        CourrierKind `json:"kind" binding:"required,oneof=file folder event"`
	Subject     string       `json:"subject" binding:"required,max=200"`
	ObjectKey   string       `json:"objectKey,omitempty"`
	ReferenceID *uint        `json:"referenceId,omitempty"`
}

type CourrierResponse struct {
	ID          uint         `json:"id"`
	SenderID    uint         `json:"senderId"`
	RecipientID uint         `json:"recipientId"`
	Kind        CourrierKind `json:"kind"`
	Subject     string       `json:"subject"`
	ObjectKey   string       `json:"objectKey,omitempty"`
	ReferenceID *uint        `json:"referenceId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ToResponse maps a CourrierItem entity to its API shape.
func (i *CourrierItem) ToResponse() CourrierResponse {
	return CourrierResponse{
		ID:          i.ID,
		SenderID:    i.SenderID,
		RecipientID: i.RecipientID,
		Kind:        i.Kind,
		Subject:     i.Subject,
		ObjectKey:   i.ObjectKey,
		ReferenceID: i.ReferenceID,
		CreatedAt:   i.CreatedAt,
	}
}
