package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// TransactionManager выполняет функцию в одной транзакции БД.
// Ошибка из fn откатывает транзакцию целиком.
type TransactionManager interface {
	Execute(ctx context.Context, fn func(repos RepositoryFactory) error) error
}

// RepositoryFactory выдаёт репозитории, привязанные к текущей транзакции
type RepositoryFactory interface {
	Employees() EmployeeRepository
	Devices() DeviceRepository
	Assignments() AssignmentRepository
}

type gormTransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager создаёт менеджер транзакций поверх GORM
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &gormTransactionManager{db: db}
}

func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repos RepositoryFactory) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(NewRepositoryFactory(tx)); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "transaction rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

type gormRepositoryFactory struct {
	db *gorm.DB
}

// NewRepositoryFactory связывает репозитории с db; внутри Execute это транзакция
func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormRepositoryFactory{db: db}
}

func (f *gormRepositoryFactory) Employees() EmployeeRepository {
	return NewEmployeeRepository(f.db)
}

func (f *gormRepositoryFactory) Devices() DeviceRepository {
	return NewDeviceRepository(f.db)
}

func (f *gormRepositoryFactory) Assignments() AssignmentRepository {
	return NewAssignmentRepository(f.db)
}
