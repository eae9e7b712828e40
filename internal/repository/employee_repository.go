package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zimmet-api/internal/domain"
)

// EmployeeRepository определяет интерфейс для работы с сотрудниками
type EmployeeRepository interface {
	Create(ctx context.Context, emp *domain.Employee) error
	CreateBatch(ctx context.Context, employees []*domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetByIDWithActiveAssignments(ctx context.Context, id int64) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	FindByName(ctx context.Context, name string) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
	Update(ctx context.Context, emp *domain.Employee) error
	ExistsByEmail(ctx context.Context, email string, excludeID *int64) (bool, error)
	ExistingEmails(ctx context.Context, emails []string) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository создаёт новый экземпляр репозитория
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(emp).Error
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return errors.Wrap(err, "create employee")
}

func (r *employeeRepository) CreateBatch(ctx context.Context, employees []*domain.Employee) error {
	if len(employees) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(employees).Error
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return errors.Wrap(err, "create employees")
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).First(&emp, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, errors.Wrap(err, "get employee")
	}
	return &emp, nil
}

func (r *employeeRepository) GetByIDWithActiveAssignments(ctx context.Context, id int64) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).
		Preload("Assignments", "status = ?", domain.AssignmentActive).
		Preload("Assignments.Device").
		First(&emp, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, errors.Wrap(err, "get employee")
	}
	return &emp, nil
}

func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&emp).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, errors.Wrap(err, "get employee by email")
	}
	return &emp, nil
}

func (r *employeeRepository) FindByName(ctx context.Context, name string) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("id ASC").First(&emp).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, errors.Wrap(err, "find employee by name")
	}
	return &emp, nil
}

func (r *employeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.WithContext(ctx).
		Preload("Assignments", "status = ?", domain.AssignmentActive).
		Preload("Assignments.Device").
		Order("name ASC").
		Find(&employees).Error
	return employees, errors.Wrap(err, "list employees")
}

func (r *employeeRepository) Update(ctx context.Context, emp *domain.Employee) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(emp).Error
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return errors.Wrap(err, "update employee")
}

func (r *employeeRepository) ExistsByEmail(ctx context.Context, email string, excludeID *int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Employee{}).Where("email = ?", email)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	err := query.Count(&count).Error
	return count > 0, errors.Wrap(err, "check employee email")
}

func (r *employeeRepository) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	var found []string
	if len(emails) == 0 {
		return found, nil
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("email IN ?", emails).
		Order("email ASC").
		Pluck("email", &found).Error
	return found, errors.Wrap(err, "find existing emails")
}

func (r *employeeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Employee{}).Count(&count).Error
	return count, errors.Wrap(err, "count employees")
}
