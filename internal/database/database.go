// Package database открывает соединение с хранилищем и накатывает миграции.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zimmet-api/internal/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

// Open подключается к БД, повторяя попытки, пока база не станет доступна
func Open(cfg config.DatabaseConfig, logger *slog.Logger, level slog.Level) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:         NewGormLogger(logger, level),
		TranslateError: true,
	}

	attempts := max(cfg.ConnectAttempts, 1)

	var db *gorm.DB
	for attempt := 0; attempt < attempts; attempt++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			var sqlDB *sql.DB
			if sqlDB, err = db.DB(); err == nil {
				err = sqlDB.Ping()
			}
			if err == nil {
				if cfg.Driver == config.DriverSQLite {
					// sqlite допускает одного писателя; одно соединение сериализует транзакции
					sqlDB.SetMaxOpenConns(1)
				}
				return db, nil
			}
		}
		logger.Warn("database is not ready yet", slog.Int("attempt", attempt+1), slog.String("driver", cfg.Driver))
		time.Sleep(time.Second)
	}

	return nil, errors.Wrapf(err, "failed to connect to database after %d attempts", attempts)
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case config.DriverSQLite:
		return sqlite.Open(SQLiteDSN(cfg.SQLitePath)), nil
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// SQLiteDSN включает внешние ключи и ожидание блокировки для файла path
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Migrate накатывает встроенные миграции для указанного драйвера
func Migrate(db *sql.DB, driver string, logger *slog.Logger) error {
	dialect, dir := "postgres", "migrations/postgres"
	if driver == config.DriverSQLite {
		dialect, dir = "sqlite3", "migrations/sqlite"
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(&gooseLogger{logger: logger})

	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "failed to set dialect")
	}

	if err := goose.Up(db, dir); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	return nil
}

// gooseLogger направляет вывод goose в slog
type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
	os.Exit(1)
}
