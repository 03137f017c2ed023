package repository

import (
	"rony-server/internal/models"

	"gorm.io/gorm"
)

type CourrierRepository struct {
	db *gorm.DB
}

func NewCourrierRepository(db *gorm.DB) *CourrierRepository {
	return &CourrierRepository{db: db}
}

func (r *CourrierRepository) Create(item *models.CourrierItem) error {
	return r.db.Create(item).Error
}

// ListForRecipient is the inbox the UI polls between realtime notifications.
func (r *CourrierRepository) ListForRecipient(recipientID uint, limit int) ([]models.CourrierItem, error) {
	var items []models.CourrierItem
	err := r.db.
		Where("recipient_id = ?", recipientID).
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
