package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zimmet-api/internal/domain"
)

// AssignmentFilter ограничивает выборку зиммета; nil Status означает все состояния
type AssignmentFilter struct {
	Status     *domain.AssignmentStatus
	EmployeeID *int64
	DeviceID   *int64
	Limit      int
}

// AssignmentRepository определяет интерфейс для работы с зиммета
type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.Assignment) error
	GetByID(ctx context.Context, id int64) (*domain.Assignment, error)
	GetByIDWithRelations(ctx context.Context, id int64) (*domain.Assignment, error)
	FindActiveByDevice(ctx context.Context, deviceID int64) (*domain.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error)
	Update(ctx context.Context, a *domain.Assignment) error
	CountByStatus(ctx context.Context, status domain.AssignmentStatus) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository создаёт новый экземпляр репозитория
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

// Create вставляет зиммет. Второй ACTIVE зиммет на то же устройство
// отклоняется частичным уникальным индексом и возвращается как ErrDeviceNotAvailable.
func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
	if isUniqueViolation(err) {
		return domain.ErrDeviceNotAvailable
	}
	return errors.Wrap(err, "create assignment")
}

func (r *assignmentRepository) GetByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *assignmentRepository) GetByIDWithRelations(ctx context.Context, id int64) (*domain.Assignment, error) {
	return r.first(r.db.WithContext(ctx).Preload("Employee").Preload("Device"), id)
}

func (r *assignmentRepository) first(query *gorm.DB, id int64) (*domain.Assignment, error) {
	var a domain.Assignment
	err := query.First(&a, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, errors.Wrap(err, "get assignment")
	}
	return &a, nil
}

func (r *assignmentRepository) FindActiveByDevice(ctx context.Context, deviceID int64) (*domain.Assignment, error) {
	var a domain.Assignment
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND status = ?", deviceID, domain.AssignmentActive).
		First(&a).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, errors.Wrap(err, "find active assignment")
	}
	return &a, nil
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error) {
	query := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Device").
		Order("assigned_date DESC").
		Order("id DESC")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.DeviceID != nil {
		query = query.Where("device_id = ?", *filter.DeviceID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var assignments []domain.Assignment
	err := query.Find(&assignments).Error
	return assignments, errors.Wrap(err, "list assignments")
}

func (r *assignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error
	if isUniqueViolation(err) {
		return domain.ErrDeviceNotAvailable
	}
	return errors.Wrap(err, "update assignment")
}

func (r *assignmentRepository) CountByStatus(ctx context.Context, status domain.AssignmentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Assignment{}).Where("status = ?", status).Count(&count).Error
	return count, errors.Wrap(err, "count assignments")
}
