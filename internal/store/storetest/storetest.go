// Package storetest opens throwaway SQLite-backed stores for tests.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitor-system-backend/internal/db"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/store"
)

// NewDB migrates a fresh database file under t.TempDir. A single connection
// keeps SQLite writers serialized, as a PostgreSQL row lock would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "visitor.db") + "?_busy_timeout=5000"
	gormDB, err := db.Open(sqlite.Open(dsn), db.NewLogger(nil, logger.Silent))
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// NewStore returns a GORM store over NewDB.
func NewStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewGormStore(NewDB(t))
}

// SeedVisitor inserts a minimal visitor.
func SeedVisitor(t *testing.T, s store.Store, nik, name, institution string) *model.Visitor {
	t.Helper()
	v := &model.Visitor{NIK: nik, FullName: name, Institution: institution}
	require.NoError(t, s.DB().Create(v).Error)
	return v
}
