package repository

import (
	"context"
	"errors"

	"rony-server/internal/models"

	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conv *models.Conversation) error {
	return r.db.Create(conv).Error
}

// GetConversation implements the lookup the event router resolves recipients
// through. A missing conversation is reported as (nil, nil): the router treats
// it as an unreachable target, not an error.
func (r *ConversationRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).First(&conv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindBetween returns the existing conversation between two users, if any.
func (r *ConversationRepository) FindBetween(a, b uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.
		Where("(creator_id = ? AND participant_id = ?) OR (creator_id = ? AND participant_id = ?)", a, b, b, a).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListForUser returns every conversation the user is a member of.
func (r *ConversationRepository) ListForUser(userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.
		Where("creator_id = ? OR participant_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&convs).Error
	return convs, err
}
