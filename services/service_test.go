package services

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierlumen/gallerybackend/database"
	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

var seedCounter int

// seedInstance creates a base image plus one instance in the given
// context. A non-nil order is applied as the instance's display order.
func seedInstance(t *testing.T, repo repository.ImageRepositoryInterface, context string, order *int) *models.ImageInstance {
	t.Helper()
	seedCounter++
	base := &models.BaseImage{
		StoragePath:      fmt.Sprintf("%s/seed-%06d.jpg", context, seedCounter),
		URL:              fmt.Sprintf("https://cdn.example.com/%s/seed-%06d.jpg", context, seedCounter),
		Width:            1600,
		Height:           900,
		FileSize:         2048,
		OriginalFilename: fmt.Sprintf("seed-%06d.jpg", seedCounter),
	}
	if err := repo.CreateBaseImage(base); err != nil {
		t.Fatalf("failed to seed base image: %v", err)
	}
	instance := &models.ImageInstance{
		ImageID:      base.ID,
		Context:      context,
		IsPublic:     true,
		DisplayOrder: order,
	}
	if err := repo.CreateInstance(instance); err != nil {
		t.Fatalf("failed to seed instance: %v", err)
	}
	instance.Base = base
	return instance
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }
