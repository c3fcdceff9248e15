package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"visitor-system-backend/config"
	"visitor-system-backend/internal/model"
)

func TestInit_SQLiteEnforcesSingleOpenVisit(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "visitor.db"),
		MaxOpenConns: 1,
	}
	gormDB, err := Init(cfg, zap.NewNop())
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	require.NoError(t, gormDB.Create(&model.Visitor{NIK: "3171000001", FullName: "Budi", Institution: "BKN"}).Error)

	now := time.Now().UTC()
	first := model.Visit{VisitorNIK: "3171000001", VisitDate: now.Truncate(24 * time.Hour), CheckInTime: now}
	require.NoError(t, gormDB.Create(&first).Error)

	second := model.Visit{VisitorNIK: "3171000001", VisitDate: now.Truncate(24 * time.Hour), CheckInTime: now.Add(time.Minute)}
	err = gormDB.Create(&second).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "a second open visit must violate the partial unique index")

	// Closed visits do not count against the index.
	require.NoError(t, gormDB.Model(&first).Update("check_out_time", now.Add(time.Hour)).Error)
	third := model.Visit{VisitorNIK: "3171000001", VisitDate: now.Truncate(24 * time.Hour), CheckInTime: now.Add(2 * time.Hour)}
	assert.NoError(t, gormDB.Create(&third).Error)
}

func TestMigrate_Idempotent(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "visitor.db")}
	gormDB, err := Init(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, Migrate(gormDB))
}

func TestNewLogger_RoutesThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "visitor.db")}
	gormDB, err := Init(cfg, zap.New(core))
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()
	before := logs.FilterLoggerName("gorm").Len()

	var v model.Visitor
	err = gormDB.First(&v, "nik = ?", "404").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, before, logs.FilterLoggerName("gorm").Len(), "missing rows are not logged")

	// Info level traces every statement.
	gormDB.Logger = gormDB.Logger.LogMode(logger.Info)
	require.NoError(t, gormDB.Model(&model.Visitor{}).Count(new(int64)).Error)
	assert.Positive(t, logs.FilterLoggerName("gorm").FilterMessage("query").Len())

	err = gormDB.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	failed := logs.FilterLoggerName("gorm").FilterMessage("query failed")
	require.Equal(t, 1, failed.Len())
	assert.Equal(t, zapcore.ErrorLevel, failed.All()[0].Level)
}
