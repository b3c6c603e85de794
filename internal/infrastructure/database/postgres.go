package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commercekit/authsvc/internal/infrastructure/repositories"
)

// Open creates the shared GORM connection. TranslateError is on so driver
// unique-violation errors surface as gorm.ErrDuplicatedKey, which the user
// repository maps to the domain conflict error.
func Open(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate creates the identity-store tables. The partial unique index on
// email enforces the unique-among-non-deleted invariant at the store level,
// which is what closes the concurrent-registration race.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&repositories.DBUser{},
		&repositories.DBRefreshToken{},
		&repositories.DBAuditEntry{},
	); err != nil {
		return fmt.Errorf("migrate identity tables: %w", err)
	}

	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_live ON users (email) WHERE deleted_at IS NULL`,
	).Error; err != nil {
		return fmt.Errorf("create partial unique email index: %w", err)
	}
	return nil
}
