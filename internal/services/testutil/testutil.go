// Package testutil provides shared test utilities for service tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/museo-go/internal/database/models"
	"github.com/bbernstein/museo-go/internal/database/repositories"
)

// TestDB holds the test database and repositories.
type TestDB struct {
	DB           *gorm.DB
	SettingRepo  *repositories.SettingRepository
	BindingRepo  *repositories.TagBindingRepository
	FragmentRepo *repositories.FragmentRepository
}

// SetupTestDB creates a migrated in-memory SQLite database for testing.
// The connection is closed when the test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// Each pooled connection to :memory: is a separate database.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return &TestDB{
		DB:           db,
		SettingRepo:  repositories.NewSettingRepository(db),
		BindingRepo:  repositories.NewTagBindingRepository(db),
		FragmentRepo: repositories.NewFragmentRepository(db),
	}
}

// UniqueTag generates a unique RFID-like tag for testing.
func UniqueTag(prefix string) string {
	return prefix + cuid.New()[:8]
}
