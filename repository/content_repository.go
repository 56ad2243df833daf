package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atelierlumen/gallerybackend/models"
)

// ContentRepository handles database operations for the key/value
// content store
type ContentRepository struct {
	DB *gorm.DB
}

// NewContentRepository creates a new instance of ContentRepository
func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

// List retrieves all content entries of a context
func (r *ContentRepository) List(context string) ([]models.Content, error) {
	var entries []models.Content
	err := r.DB.Where("context = ?", context).Order("key ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list content for context %s: %w", context, err)
	}
	return entries, nil
}

// Upsert writes one content value keyed by (context, key)
func (r *ContentRepository) Upsert(context, key, value string) error {
	now := time.Now().Unix()
	var entry models.Content
	err := r.DB.Where("context = ? AND key = ?", context, key).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		entry = models.Content{Context: context, Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
		if err := r.DB.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create content %s/%s: %w", context, key, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load content %s/%s: %w", context, key, err)
	}

	updates := map[string]interface{}{"value": value, "updated_at": now}
	if err := r.DB.Model(&models.Content{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update content %s/%s: %w", context, key, err)
	}
	return nil
}
