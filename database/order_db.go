package database

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

// reorder renumbering runs one statement per row over potentially long
// id lists, so the statements are built directly instead of going
// through model marshalling

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SetInstanceOrder assigns a display order to one instance within its
// context. Rows outside the context are never touched.
func SetInstanceOrder(db *gorm.DB, instanceID uint, context string, order int) error {
	sqlStr, args, err := builder.Update("image_instances").
		Set("display_order", order).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": instanceID, "context": context}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order update for instance %d: %w", instanceID, err)
	}

	if err := db.Exec(sqlStr, args...).Error; err != nil {
		return fmt.Errorf("failed to set order for instance %d: %w", instanceID, err)
	}
	return nil
}

// SetGroupDisplayOrder persists a layout group's aggregate position.
func SetGroupDisplayOrder(db *gorm.DB, groupID uint, order int) error {
	sqlStr, args, err := builder.Update("layout_groups").
		Set("group_display_order", order).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": groupID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build group order update for group %d: %w", groupID, err)
	}

	if err := db.Exec(sqlStr, args...).Error; err != nil {
		return fmt.Errorf("failed to set display order for group %d: %w", groupID, err)
	}
	return nil
}
