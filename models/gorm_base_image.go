package models

// BaseImage represents one physical asset in object storage.
// It corresponds to the 'base_images' table. A BaseImage exists only
// while at least one ImageInstance references it; deleting the last
// instance deletes the row and the storage object.
type BaseImage struct {
	ID               uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	StoragePath      string `gorm:"not null;uniqueIndex" json:"storage_path"`
	URL              string `gorm:"not null" json:"url"`
	Alt              string `gorm:"not null;default:''" json:"alt"`
	Width            int    `gorm:"not null" json:"width"`
	Height           int    `gorm:"not null" json:"height"`
	FileSize         int64  `gorm:"not null" json:"file_size"`
	OriginalFilename string `gorm:"not null" json:"original_filename"`
	CapturedAt       *int64 `gorm:"" json:"captured_at,omitempty"` // Nullable, Unix timestamp
	CreatedAt        int64  `gorm:"not null" json:"created_at"`
	UpdatedAt        int64  `gorm:"not null" json:"updated_at"`

	// Relationships
	Instances []ImageInstance `gorm:"foreignKey:ImageID" json:"instances,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (BaseImage) TableName() string {
	return "base_images"
}
