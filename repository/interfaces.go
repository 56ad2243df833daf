package repository

import (
	"github.com/atelierlumen/gallerybackend/models"
)

// ImageRepositoryInterface defines the methods for base image, instance
// and metadata data operations
type ImageRepositoryInterface interface {
	CreateBaseImage(base *models.BaseImage) error
	GetBaseImageByID(id uint) (*models.BaseImage, error)
	GetBaseImageByPath(storagePath string) (*models.BaseImage, error)
	ListStoragePaths() ([]string, error)
	DeleteBaseImage(id uint) error

	CreateInstance(instance *models.ImageInstance) error
	GetInstanceByID(id uint) (*models.ImageInstance, error)
	ListInstancesByContext(context string) ([]models.ImageInstance, error)
	ListInstancesByIDsInContext(ids []uint, context string) ([]models.ImageInstance, error)
	ListInstancesByImageID(imageID uint) ([]models.ImageInstance, error)
	DeleteInstanceRow(id uint) error

	UpsertMetadata(instanceID uint, description string) error
	UpdateAltForPath(storagePath, alt string) error
	SetPrimary(instanceID uint, context string, isPrimary bool) error
	SetPublic(instanceID uint, isPublic bool) error
	SetInstanceOrder(instanceID uint, context string, order int) error
}

// LayoutRepositoryInterface defines the methods for layout group and
// membership data operations
type LayoutRepositoryInterface interface {
	GetGroupByID(id uint) (*models.LayoutGroup, error)
	GetMembership(instanceID uint) (*models.ImageLayout, error)
	ListMembershipsByInstanceIDs(instanceIDs []uint) ([]models.ImageLayout, error)
	CreateGroupWithMembers(group *models.LayoutGroup, members []models.ImageLayout) error
	RetireGroup(groupID uint) error
	SetGroupDisplayOrder(groupID uint, order int) error
}

// EventRepositoryInterface defines the methods for event data operations
type EventRepositoryInterface interface {
	Create(event *models.Event) error
	GetByID(id uint) (*models.Event, error)
	GetBySlug(slug string) (*models.Event, error)
	ListAll() ([]models.Event, error)
	Update(event *models.Event) error
	Delete(id uint) error

	AddImage(eventImage *models.EventImage) error
	RemoveImage(instanceID uint) error
	ListImages(eventID uint) ([]models.EventImage, error)
	SetCover(eventID uint, instanceID *uint) error
}

// ContentRepositoryInterface defines the methods for the key/value
// content store
type ContentRepositoryInterface interface {
	List(context string) ([]models.Content, error)
	Upsert(context, key, value string) error
}

// UserRepositoryInterface defines the methods for user data operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}
