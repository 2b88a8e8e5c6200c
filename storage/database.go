package storage

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recipe-hand/config"
	"recipe-hand/models"
)

// OpenDatabase verbindet sich mit PostgreSQL und migriert das Schema.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migrated", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))
	return db, nil
}

// Migrate legt alle Tabellen inklusive der m2m-Verknüpfungen an.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Ingredient{}, &models.Tag{}, &models.Recipe{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
