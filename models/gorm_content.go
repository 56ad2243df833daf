package models

// Content is one key/value entry of the static content store, scoped by
// context. It corresponds to the 'content' table.
type Content struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Context   string `gorm:"not null;uniqueIndex:idx_content_context_key" json:"context"`
	Key       string `gorm:"not null;uniqueIndex:idx_content_context_key" json:"key"`
	Value     string `gorm:"not null" json:"value"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
	UpdatedAt int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Content) TableName() string {
	return "content"
}
