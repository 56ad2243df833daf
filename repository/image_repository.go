package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atelierlumen/gallerybackend/database"
	"github.com/atelierlumen/gallerybackend/models"
)

// contextOrder lists instances the way they display: assigned orders
// first, unordered instances after, ties broken by creation time.
const contextOrder = "display_order IS NULL, display_order ASC, created_at ASC"

// ImageRepository handles database operations for BaseImage,
// ImageInstance and ImageMetadata entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// CreateBaseImage inserts a new base image row
func (r *ImageRepository) CreateBaseImage(base *models.BaseImage) error {
	now := time.Now().Unix()
	base.CreatedAt = now
	base.UpdatedAt = now
	if err := r.DB.Create(base).Error; err != nil {
		return fmt.Errorf("failed to create base image for %s: %w", base.StoragePath, err)
	}
	return nil
}

// GetBaseImageByID retrieves a base image by its id
func (r *ImageRepository) GetBaseImageByID(id uint) (*models.BaseImage, error) {
	var base models.BaseImage
	err := r.DB.First(&base, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get base image %d: %w", id, err)
	}
	return &base, nil
}

// GetBaseImageByPath retrieves a base image by its unique storage path
func (r *ImageRepository) GetBaseImageByPath(storagePath string) (*models.BaseImage, error) {
	var base models.BaseImage
	err := r.DB.Where("storage_path = ?", storagePath).First(&base).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get base image by path %s: %w", storagePath, err)
	}
	return &base, nil
}

// ListStoragePaths returns every distinct storage path known to the
// database, used by the orphan scan
func (r *ImageRepository) ListStoragePaths() ([]string, error) {
	var paths []string
	err := r.DB.Model(&models.BaseImage{}).Distinct().Pluck("storage_path", &paths).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list storage paths: %w", err)
	}
	return paths, nil
}

// DeleteBaseImage removes a base image row by id
func (r *ImageRepository) DeleteBaseImage(id uint) error {
	result := r.DB.Delete(&models.BaseImage{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete base image %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateInstance inserts a new image instance row
func (r *ImageRepository) CreateInstance(instance *models.ImageInstance) error {
	now := time.Now().Unix()
	instance.CreatedAt = now
	instance.UpdatedAt = now
	if err := r.DB.Create(instance).Error; err != nil {
		return fmt.Errorf("failed to create instance for image %d in %s: %w",
			instance.ImageID, instance.Context, err)
	}
	return nil
}

// GetInstanceByID retrieves an instance with its base image, metadata
// and layout membership preloaded
func (r *ImageRepository) GetInstanceByID(id uint) (*models.ImageInstance, error) {
	var instance models.ImageInstance
	err := r.DB.Preload("Base").Preload("Metadata").Preload("Layout").First(&instance, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get instance %d: %w", id, err)
	}
	return &instance, nil
}

// ListInstancesByContext retrieves all instances of a context in
// display order
func (r *ImageRepository) ListInstancesByContext(context string) ([]models.ImageInstance, error) {
	var instances []models.ImageInstance
	err := r.DB.Preload("Base").Preload("Metadata").Preload("Layout").
		Where("context = ?", context).
		Order(contextOrder).
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list instances for context %s: %w", context, err)
	}
	return instances, nil
}

// ListInstancesByIDsInContext retrieves the named instances restricted
// to the given context
func (r *ImageRepository) ListInstancesByIDsInContext(ids []uint, context string) ([]models.ImageInstance, error) {
	if len(ids) == 0 {
		return []models.ImageInstance{}, nil
	}
	var instances []models.ImageInstance
	err := r.DB.Preload("Base").
		Where("id IN ? AND context = ?", ids, context).
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list instances by ids in context %s: %w", context, err)
	}
	return instances, nil
}

// ListInstancesByImageID retrieves every placement of one base image
func (r *ImageRepository) ListInstancesByImageID(imageID uint) ([]models.ImageInstance, error) {
	var instances []models.ImageInstance
	err := r.DB.Where("image_id = ?", imageID).Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list instances for image %d: %w", imageID, err)
	}
	return instances, nil
}

// DeleteInstanceRow removes an instance together with its metadata and
// event membership. Layout retirement and base image cascade are the
// caller's responsibility.
func (r *ImageRepository) DeleteInstanceRow(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_instance_id = ?", id).Delete(&models.ImageMetadata{}).Error; err != nil {
			return fmt.Errorf("failed to delete metadata for instance %d: %w", id, err)
		}
		if err := tx.Where("image_instance_id = ?", id).Delete(&models.EventImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete event membership for instance %d: %w", id, err)
		}
		result := tx.Delete(&models.ImageInstance{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete instance %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpsertMetadata writes an instance's description, creating the
// metadata row lazily on first write
func (r *ImageRepository) UpsertMetadata(instanceID uint, description string) error {
	now := time.Now().Unix()
	var meta models.ImageMetadata
	err := r.DB.Where("image_instance_id = ?", instanceID).First(&meta).Error
	if err == gorm.ErrRecordNotFound {
		meta = models.ImageMetadata{
			ImageInstanceID: instanceID,
			Description:     description,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := r.DB.Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to create metadata for instance %d: %w", instanceID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load metadata for instance %d: %w", instanceID, err)
	}

	updates := map[string]interface{}{"description": description, "updated_at": now}
	if err := r.DB.Model(&models.ImageMetadata{}).
		Where("image_instance_id = ?", instanceID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update metadata for instance %d: %w", instanceID, err)
	}
	return nil
}

// UpdateAltForPath sets alt text on the base image, which all contexts
// sharing the storage path observe
func (r *ImageRepository) UpdateAltForPath(storagePath, alt string) error {
	updates := map[string]interface{}{"alt": alt, "updated_at": time.Now().Unix()}
	err := r.DB.Model(&models.BaseImage{}).
		Where("storage_path = ?", storagePath).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update alt for %s: %w", storagePath, err)
	}
	return nil
}

// SetPrimary toggles an instance's primary flag. Promotion runs in a
// transaction that demotes any other primary in the same context, so at
// most one instance per context ever holds the flag.
func (r *ImageRepository) SetPrimary(instanceID uint, context string, isPrimary bool) error {
	now := time.Now().Unix()
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if isPrimary {
			if err := tx.Model(&models.ImageInstance{}).
				Where("context = ? AND is_primary = ?", context, true).
				Updates(map[string]interface{}{"is_primary": false, "updated_at": now}).Error; err != nil {
				return fmt.Errorf("failed to demote existing primary in %s: %w", context, err)
			}
		}
		if err := tx.Model(&models.ImageInstance{}).
			Where("id = ?", instanceID).
			Updates(map[string]interface{}{"is_primary": isPrimary, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to set primary on instance %d: %w", instanceID, err)
		}
		return nil
	})
}

// SetPublic toggles an instance's public flag
func (r *ImageRepository) SetPublic(instanceID uint, isPublic bool) error {
	err := r.DB.Model(&models.ImageInstance{}).
		Where("id = ?", instanceID).
		Updates(map[string]interface{}{"is_public": isPublic, "updated_at": time.Now().Unix()}).Error
	if err != nil {
		return fmt.Errorf("failed to set public on instance %d: %w", instanceID, err)
	}
	return nil
}

// SetInstanceOrder assigns one instance's display order within its context
func (r *ImageRepository) SetInstanceOrder(instanceID uint, context string, order int) error {
	return database.SetInstanceOrder(r.DB, instanceID, context, order)
}
