package database

import (
	"fmt"
	"log"

	"messaging-core/internal/config"
	"messaging-core/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var GormDB *gorm.DB

// InitGorm connects to PostgreSQL when DB_HOST is configured, otherwise falls
// back to a local SQLite file. Schema is kept in sync via AutoMigrate.
func InitGorm(cfg *config.Config) {
	var err error

	if cfg.DBHost != "" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		GormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		GormDB, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(GormDB); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}

	log.Println("Database initialized (accounts, conversations, messages, templates, knowledge)")
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Conversation{},
		&models.Message{},
		&models.Template{},
		&models.KnowledgeEntry{},
	)
}
