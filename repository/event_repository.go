package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atelierlumen/gallerybackend/models"
)

// EventRepository handles database operations for Event and EventImage
// entities
type EventRepository struct {
	DB *gorm.DB
}

// NewEventRepository creates a new instance of EventRepository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{DB: db}
}

// Create inserts a new event
func (r *EventRepository) Create(event *models.Event) error {
	now := time.Now().Unix()
	event.CreatedAt = now
	event.UpdatedAt = now
	if err := r.DB.Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event %s: %w", event.Name, err)
	}
	return nil
}

// GetByID retrieves an event by id with its image memberships
func (r *EventRepository) GetByID(id uint) (*models.Event, error) {
	var event models.Event
	err := r.DB.Preload("Images").First(&event, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return &event, nil
}

// GetBySlug retrieves an event by its slug
func (r *EventRepository) GetBySlug(slug string) (*models.Event, error) {
	var event models.Event
	err := r.DB.Preload("Images").Where("slug = ?", slug).First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event by slug %s: %w", slug, err)
	}
	return &event, nil
}

// ListAll retrieves all events, most recent date first
func (r *EventRepository) ListAll() ([]models.Event, error) {
	var events []models.Event
	err := r.DB.Order("date DESC, id DESC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// Update persists changed event fields
func (r *EventRepository) Update(event *models.Event) error {
	event.UpdatedAt = time.Now().Unix()
	if err := r.DB.Save(event).Error; err != nil {
		return fmt.Errorf("failed to update event %d: %w", event.ID, err)
	}
	return nil
}

// Delete removes an event and its image memberships
func (r *EventRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete image memberships of event %d: %w", id, err)
		}
		result := tx.Delete(&models.Event{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete event %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AddImage attaches an instance to an event
func (r *EventRepository) AddImage(eventImage *models.EventImage) error {
	now := time.Now().Unix()
	eventImage.CreatedAt = now
	eventImage.UpdatedAt = now
	if err := r.DB.Create(eventImage).Error; err != nil {
		return fmt.Errorf("failed to add instance %d to event %d: %w",
			eventImage.ImageInstanceID, eventImage.EventID, err)
	}
	return nil
}

// RemoveImage detaches an instance from whatever event holds it
func (r *EventRepository) RemoveImage(instanceID uint) error {
	result := r.DB.Where("image_instance_id = ?", instanceID).Delete(&models.EventImage{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove instance %d from its event: %w", instanceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListImages retrieves the image memberships of an event
func (r *EventRepository) ListImages(eventID uint) ([]models.EventImage, error) {
	var memberships []models.EventImage
	err := r.DB.Where("event_id = ?", eventID).Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images of event %d: %w", eventID, err)
	}
	return memberships, nil
}

// SetCover sets or clears an event's cover instance
func (r *EventRepository) SetCover(eventID uint, instanceID *uint) error {
	updates := map[string]interface{}{
		"cover_instance_id": instanceID,
		"updated_at":        time.Now().Unix(),
	}
	result := r.DB.Model(&models.Event{}).Where("id = ?", eventID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set cover for event %d: %w", eventID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
