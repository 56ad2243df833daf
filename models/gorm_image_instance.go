package models

// ImageInstance is the placement of a BaseImage within one context.
// It corresponds to the 'image_instances' table and is the unit of
// deletion, layout membership and ordering.
type ImageInstance struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID      uint   `gorm:"not null;index" json:"image_id"`
	Context      string `gorm:"not null;index" json:"context"`
	IsPublic     bool   `gorm:"not null;default:true" json:"is_public"`
	IsPrimary    bool   `gorm:"not null;default:false" json:"is_primary"`
	DisplayOrder *int   `gorm:"" json:"display_order,omitempty"` // Nullable until assigned
	CreatedAt    int64  `gorm:"not null" json:"created_at"`
	UpdatedAt    int64  `gorm:"not null" json:"updated_at"`

	// Relationships
	Base     *BaseImage     `gorm:"foreignKey:ImageID" json:"base,omitempty"`
	Metadata *ImageMetadata `gorm:"foreignKey:ImageInstanceID" json:"metadata,omitempty"`
	Layout   *ImageLayout   `gorm:"foreignKey:ImageInstanceID" json:"layout,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (ImageInstance) TableName() string {
	return "image_instances"
}

// ImageMetadata is an optional 1:1 extension of an instance carrying a
// free-text description. Created lazily on first write.
type ImageMetadata struct {
	ImageInstanceID uint   `gorm:"primaryKey" json:"image_instance_id"`
	Description     string `gorm:"not null;default:''" json:"description"`
	CreatedAt       int64  `gorm:"not null" json:"created_at"`
	UpdatedAt       int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (ImageMetadata) TableName() string {
	return "image_metadata"
}
