package repository

import (
	"testing"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database. Shared-cache mode with
// a single connection keeps all operations on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entities.Tenant{},
		&entities.PerformanceSnapshot{},
		&entities.DetectedIssue{},
		&entities.AutomationAction{},
		&entities.AdminIntervention{},
		&entities.TenantNotification{},
	)
	require.NoError(t, err, "failed to migrate tables")
	return db
}
