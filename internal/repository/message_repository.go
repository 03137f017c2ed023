package repository

import (
	"rony-server/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(msg *models.Message) error {
	return r.db.Create(msg).Error
}

// ListByConversation pages backwards through a conversation's history.
// before is an exclusive message ID cursor; zero means "from the latest".
func (r *MessageRepository) ListByConversation(conversationID uint, limit int, before uint) ([]models.Message, error) {
	q := r.db.Where("conversation_id = ?", conversationID)
	if before > 0 {
		q = q.Where("id < ?", before)
	}

	var messages []models.Message
	err := q.Order("id DESC").Limit(limit).Find(&messages).Error
	return messages, err
}
