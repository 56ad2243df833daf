package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atelierlumen/gallerybackend/database"
	"github.com/atelierlumen/gallerybackend/models"
)

// LayoutRepository handles database operations for LayoutGroup and
// ImageLayout entities
type LayoutRepository struct {
	DB *gorm.DB
}

// NewLayoutRepository creates a new instance of LayoutRepository
func NewLayoutRepository(db *gorm.DB) *LayoutRepository {
	return &LayoutRepository{DB: db}
}

// GetGroupByID retrieves a layout group with its members
func (r *LayoutRepository) GetGroupByID(id uint) (*models.LayoutGroup, error) {
	var group models.LayoutGroup
	err := r.DB.Preload("Members").First(&group, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get layout group %d: %w", id, err)
	}
	return &group, nil
}

// GetMembership retrieves an instance's layout membership, if any
func (r *LayoutRepository) GetMembership(instanceID uint) (*models.ImageLayout, error) {
	var membership models.ImageLayout
	err := r.DB.Where("image_instance_id = ?", instanceID).First(&membership).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get layout membership for instance %d: %w", instanceID, err)
	}
	return &membership, nil
}

// ListMembershipsByInstanceIDs retrieves layout memberships for the
// named instances
func (r *LayoutRepository) ListMembershipsByInstanceIDs(instanceIDs []uint) ([]models.ImageLayout, error) {
	if len(instanceIDs) == 0 {
		return []models.ImageLayout{}, nil
	}
	var memberships []models.ImageLayout
	err := r.DB.Where("image_instance_id IN ?", instanceIDs).Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list layout memberships: %w", err)
	}
	return memberships, nil
}

// CreateGroupWithMembers creates a layout group and all its membership
// rows atomically; a group never exists with a partial member set
func (r *LayoutRepository) CreateGroupWithMembers(group *models.LayoutGroup, members []models.ImageLayout) error {
	now := time.Now().Unix()
	group.CreatedAt = now
	group.UpdatedAt = now

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return fmt.Errorf("failed to create layout group: %w", err)
		}
		for i := range members {
			members[i].LayoutGroupID = group.ID
			members[i].CreatedAt = now
			members[i].UpdatedAt = now
		}
		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("failed to create layout memberships for group %d: %w", group.ID, err)
		}
		return nil
	})
}

// RetireGroup deletes a layout group and all its membership rows. The
// group is retired entirely, never partially.
func (r *LayoutRepository) RetireGroup(groupID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("layout_group_id = ?", groupID).Delete(&models.ImageLayout{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships of group %d: %w", groupID, err)
		}
		if err := tx.Delete(&models.LayoutGroup{}, groupID).Error; err != nil {
			return fmt.Errorf("failed to delete layout group %d: %w", groupID, err)
		}
		return nil
	})
}

// SetGroupDisplayOrder persists a group's aggregate display position
func (r *LayoutRepository) SetGroupDisplayOrder(groupID uint, order int) error {
	return database.SetGroupDisplayOrder(r.DB, groupID, order)
}
