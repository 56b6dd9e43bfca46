// Package databasetest opens throwaway in-memory databases for tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
)

// New opens an in-memory SQLite database, migrates models and closes it when
// the test ends.
func New(tb testing.TB, models ...interface{}) *database.DB {
	tb.Helper()
	cfg := database.Config{
		Driver:   database.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: "silent",
	}
	db, err := database.Open(context.Background(), cfg, logger.NewNop())
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	if err := db.AutoMigrate(models...); err != nil {
		tb.Fatalf("migrate test database: %v", err)
	}
	return db
}
