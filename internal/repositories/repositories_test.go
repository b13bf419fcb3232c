package repositories_test

import (
	"testing"

	"toko-checkout/internal/repositories"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*repositories.Store, *gorm.DB) {
	t.Helper()
	db, err := repositories.Open(repositories.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      repositories.InMemorySQLiteDSN(),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repositories.NewStore(db), db
}
