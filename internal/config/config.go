package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config содержит настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	LogLevel slog.Level
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port         string
	MaxBodyBytes int64
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	ConnectAttempts int
}

// ImportConfig - настройки массового импорта
type ImportConfig struct {
	// EmailDomain используется для адресов сотрудников, созданных из таблицы инвентаря
	EmailDomain string
	MaxRows     int
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения.
// Если рядом лежит .env, его значения подхватываются, но не перекрывают окружение.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			MaxBodyBytes: int64(getEnvInt("HTTP_MAX_BODY_BYTES", 10<<20)),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "zimmet"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "zimmet.db"),
			ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 30),
		},
		Import: ImportConfig{
			EmailDomain: getEnv("IMPORT_EMAIL_DOMAIN", "sirket.com"),
			MaxRows:     getEnvInt("IMPORT_MAX_ROWS", 5000),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo
	}
	return level
}
