package repositories

import (
	"fmt"
	"log"
	"os"
	"time"

	"toko-checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	DSN      string
	LogLevel logger.LogLevel
}

// Open connects to the configured database. SQLite is limited to a single
// connection so in-memory databases are shared by every query.
func Open(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver != "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// InMemorySQLiteDSN returns a DSN for a private, shared-cache in-memory database.
func InMemorySQLiteDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// partialIndexes back the one-open-cart and one-open-checkout rules per user.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_open_user ON carts (user_id) WHERE status IN ('active', 'checkout_locked')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_checkout_open_user ON checkout_snapshots (user_id) WHERE status = 'CREATED'`,
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.SavedAddress{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.CheckoutSnapshot{},
		&models.Order{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
