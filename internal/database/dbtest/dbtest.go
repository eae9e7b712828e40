// Package dbtest поднимает мигрированную sqlite базу в памяти для тестов.
package dbtest

import (
	"io"
	"log/slog"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zimmet-api/internal/config"
	"github.com/zimmet-api/internal/database"
)

// Open возвращает новую пустую базу; она закрывается по завершении теста
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), &gorm.Config{
		Logger:         database.NewGormLogger(logger, slog.LevelInfo),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// каждое соединение к :memory: видит свою базу
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(sqlDB, config.DriverSQLite, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}
