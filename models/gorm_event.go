package models

// Event is a named, slugged grouping of image instances, independent of
// layout. It corresponds to the 'events' table.
type Event struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string  `gorm:"not null;uniqueIndex" json:"name"`
	Slug            string  `gorm:"not null;uniqueIndex" json:"slug"`
	Date            string  `gorm:"not null" json:"date"` // YYYY-MM-DD
	Location        string  `gorm:"not null" json:"location"`
	CoverInstanceID *uint   `gorm:"" json:"cover_instance_id,omitempty"` // Nullable
	IsPublic        bool    `gorm:"not null;default:true" json:"is_public"`
	CreatedAt       int64   `gorm:"not null" json:"created_at"`
	UpdatedAt       int64   `gorm:"not null" json:"updated_at"`

	// Relationships
	Images []EventImage `gorm:"foreignKey:EventID" json:"images,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Event) TableName() string {
	return "events"
}

// EventImage attaches an ImageInstance to an Event. An instance belongs
// to at most one event.
type EventImage struct {
	ImageInstanceID uint  `gorm:"primaryKey" json:"image_instance_id"`
	EventID         uint  `gorm:"not null;index" json:"event_id"`
	CreatedAt       int64 `gorm:"not null" json:"created_at"`
	UpdatedAt       int64 `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (EventImage) TableName() string {
	return "event_images"
}
