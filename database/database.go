package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierlumen/gallerybackend/models"
)

// InitDB initializes and returns a GORM database instance
func InitDB(dataSourceName string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrateModels(db); err != nil {
		return nil, err
	}

	log.Println("Database initialized successfully at", dataSourceName)
	return db, nil
}

// AutoMigrateModels migrates all schemas owned by the data model
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.BaseImage{},
		&models.ImageInstance{},
		&models.ImageMetadata{},
		&models.LayoutGroup{},
		&models.ImageLayout{},
		&models.Event{},
		&models.EventImage{},
		&models.Content{},
		&models.User{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
