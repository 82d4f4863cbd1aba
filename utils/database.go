package utils

import (
	"fmt"

	"lingo-backend/config"
	"lingo-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection and migrates the core schema.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		return nil, err
	}

	return db, nil
}

// MigrateDB runs the schema migration for every owned table.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GameLevel{},
		&models.Stage{},
		&models.Lesson{},
		&models.UserStageProgress{},
		&models.UserLessonProgress{},
		&models.Streak{},
		&models.StreakDay{},
	)
}
