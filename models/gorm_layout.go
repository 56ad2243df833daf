package models

// LayoutGroup is the live assignment of an image set to a layout type
// within a context. Its GroupDisplayOrder tracks the display order of
// its lowest-ordered member as of the last reorder.
type LayoutGroup struct {
	ID                uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Context           string `gorm:"not null;index" json:"context"`
	LayoutType        string `gorm:"not null" json:"layout_type"`
	GroupDisplayOrder int    `gorm:"not null;default:0" json:"group_display_order"`
	CreatedAt         int64  `gorm:"not null" json:"created_at"`
	UpdatedAt         int64  `gorm:"not null" json:"updated_at"`

	// Relationships
	Members []ImageLayout `gorm:"foreignKey:LayoutGroupID" json:"members,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (LayoutGroup) TableName() string {
	return "layout_groups"
}

// ImageLayout links one ImageInstance to at most one LayoutGroup.
// PositionInGroup is meaningful only for multi-image layouts.
type ImageLayout struct {
	ImageInstanceID uint  `gorm:"primaryKey" json:"image_instance_id"`
	LayoutGroupID   uint  `gorm:"not null;index" json:"layout_group_id"`
	PositionInGroup *int  `gorm:"" json:"position_in_group,omitempty"` // Nullable for single-image layouts
	CreatedAt       int64 `gorm:"not null" json:"created_at"`
	UpdatedAt       int64 `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (ImageLayout) TableName() string {
	return "image_layouts"
}
