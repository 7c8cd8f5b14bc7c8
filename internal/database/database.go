package database

import (
	"fmt"
	"log"

	"oddsley/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations against the given DB. Reference models
// go first so the snapshot hierarchy can hang off them.
func Migrate(db *gorm.DB) error {
	referenceModels := []interface{}{
		&models.Sport{},
		&models.Team{},
		&models.Event{},
	}

	for _, model := range referenceModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	snapshotModels := []interface{}{
		&models.Odd{},
		&models.Bookmaker{},
		&models.Market{},
		&models.Outcome{},
		&models.EventResult{},
	}

	for _, model := range snapshotModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
