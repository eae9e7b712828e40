package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zimmet-api/internal/config"
	"github.com/zimmet-api/internal/database"
	"github.com/zimmet-api/internal/handler"
	"github.com/zimmet-api/internal/repository"
	"github.com/zimmet-api/internal/service"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Инициализация логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// Подключение к БД
	db, err := database.Open(cfg.Database, logger, slog.LevelWarn)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get sql.DB", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Запуск миграций
	if err := database.Migrate(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация репозиториев
	repos := repository.NewRepositoryFactory(db)
	tm := repository.NewTransactionManager(db)

	// Инициализация сервисов
	reconciler := service.NewReconciler()
	resolver := service.NewIdentityResolver(cfg.Import.EmailDomain)

	empService := service.NewEmployeeService(repos.Employees(), tm, logger)
	deviceService := service.NewDeviceService(repos.Devices())
	assignmentService := service.NewAssignmentService(repos.Assignments(), tm, reconciler, logger)
	importService := service.NewImportService(tm, reconciler, resolver, service.ImportOptions{MaxRows: cfg.Import.MaxRows}, logger)
	exportService := service.NewExportService(repos.Employees(), repos.Devices(), repos.Assignments())
	reportService := service.NewReportService(repos.Employees(), repos.Devices(), repos.Assignments())

	// Инициализация хендлеров
	maxBody := cfg.Server.MaxBodyBytes
	empHandler := handler.NewEmployeeHandler(empService, exportService, logger, maxBody)
	deviceHandler := handler.NewDeviceHandler(deviceService, exportService, logger, maxBody)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, importService, exportService, logger, maxBody)
	inventoryHandler := handler.NewInventoryHandler(importService, exportService, reportService, logger, maxBody)

	// Настройка роутера
	router := handler.NewRouter(empHandler, deviceHandler, assignmentHandler, inventoryHandler, logger)
	httpHandler := router.Setup()

	// Импорт большой таблицы идёт построчно, поэтому запись ответа ждёт дольше
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not gracefully shutdown the server", slog.Any("error", err))
		}
		close(done)
	}()

	logger.Info("server is starting",
		slog.String("port", cfg.Server.Port),
		slog.String("driver", cfg.Database.Driver),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("could not listen on port", slog.String("port", cfg.Server.Port), slog.Any("error", err))
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}
