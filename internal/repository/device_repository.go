package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zimmet-api/internal/domain"
)

// DeviceIdentifiers - альтернативные ключи устройства; пустые поля не участвуют в поиске
type DeviceIdentifiers struct {
	SerialNumber *string
	IMEI         *string
	UUID         *string
}

// Empty сообщает, что ни один ключ не задан
func (ids DeviceIdentifiers) Empty() bool {
	return ids.SerialNumber == nil && ids.IMEI == nil && ids.UUID == nil
}

// GroupCount - количество устройств в группе отчёта
type GroupCount struct {
	Key   string `json:"key" gorm:"column:group_key"`
	Count int64  `json:"count" gorm:"column:total"`
}

// DeviceRepository определяет интерфейс для работы с устройствами
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id int64) (*domain.Device, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Device, error)
	GetByIDWithHistory(ctx context.Context, id int64) (*domain.Device, error)
	GetBySerialNumber(ctx context.Context, serial string) (*domain.Device, error)
	FindByIdentifiers(ctx context.Context, ids DeviceIdentifiers) (*domain.Device, error)
	List(ctx context.Context) ([]domain.Device, error)
	Update(ctx context.Context, device *domain.Device) error
	UpdateStatus(ctx context.Context, id int64, status domain.DeviceStatus) error
	ExistsBySerialNumber(ctx context.Context, serial string, excludeID *int64) (bool, error)
	CountByStatus(ctx context.Context) ([]GroupCount, error)
	CountByType(ctx context.Context) ([]GroupCount, error)
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository создаёт новый экземпляр репозитория
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Create(ctx context.Context, device *domain.Device) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(device).Error
	if isUniqueViolation(err) {
		return domain.ErrDuplicateSerialNumber
	}
	return errors.Wrap(err, "create device")
}

func (r *deviceRepository) GetByID(ctx context.Context, id int64) (*domain.Device, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *deviceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Device, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *deviceRepository) GetByIDWithHistory(ctx context.Context, id int64) (*domain.Device, error) {
	query := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("assigned_date DESC")
		}).
		Preload("Assignments.Employee")
	return r.first(query, id)
}

func (r *deviceRepository) first(query *gorm.DB, id int64) (*domain.Device, error) {
	var device domain.Device
	err := query.First(&device, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, errors.Wrap(err, "get device")
	}
	return &device, nil
}

func (r *deviceRepository) GetBySerialNumber(ctx context.Context, serial string) (*domain.Device, error) {
	var device domain.Device
	err := r.db.WithContext(ctx).Where("serial_number = ?", serial).First(&device).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, errors.Wrap(err, "get device by serial number")
	}
	return &device, nil
}

// FindByIdentifiers ищет устройство, у которого совпадает хотя бы один из ключей
func (r *deviceRepository) FindByIdentifiers(ctx context.Context, ids DeviceIdentifiers) (*domain.Device, error) {
	var (
		conds []string
		args  []any
	)
	if ids.SerialNumber != nil {
		conds = append(conds, "serial_number = ?")
		args = append(args, *ids.SerialNumber)
	}
	if ids.IMEI != nil {
		conds = append(conds, "imei = ?")
		args = append(args, *ids.IMEI)
	}
	if ids.UUID != nil {
		conds = append(conds, "uuid = ?")
		args = append(args, *ids.UUID)
	}
	if len(conds) == 0 {
		return nil, domain.ErrDeviceNotFound
	}

	var device domain.Device
	err := forUpdate(r.db.WithContext(ctx)).
		Where(strings.Join(conds, " OR "), args...).
		Order("id ASC").
		First(&device).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, errors.Wrap(err, "find device by identifiers")
	}
	return &device, nil
}

func (r *deviceRepository) List(ctx context.Context) ([]domain.Device, error) {
	var devices []domain.Device
	err := r.db.WithContext(ctx).
		Preload("Assignments", "status = ?", domain.AssignmentActive).
		Preload("Assignments.Employee").
		Order("type ASC").
		Order("brand ASC").
		Find(&devices).Error
	return devices, errors.Wrap(err, "list devices")
}

func (r *deviceRepository) Update(ctx context.Context, device *domain.Device) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(device).Error
	if isUniqueViolation(err) {
		return domain.ErrDuplicateSerialNumber
	}
	return errors.Wrap(err, "update device")
}

func (r *deviceRepository) UpdateStatus(ctx context.Context, id int64, status domain.DeviceStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "update device status")
	}
	if result.RowsAffected == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *deviceRepository) ExistsBySerialNumber(ctx context.Context, serial string, excludeID *int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Device{}).Where("serial_number = ?", serial)

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	err := query.Count(&count).Error
	return count > 0, errors.Wrap(err, "check device serial number")
}

func (r *deviceRepository) CountByStatus(ctx context.Context) ([]GroupCount, error) {
	return r.countBy(ctx, "status")
}

func (r *deviceRepository) CountByType(ctx context.Context) ([]GroupCount, error) {
	return r.countBy(ctx, "type")
}

func (r *deviceRepository) countBy(ctx context.Context, column string) ([]GroupCount, error) {
	var counts []GroupCount
	err := r.db.WithContext(ctx).
		Model(&domain.Device{}).
		Select(column + " AS group_key, COUNT(*) AS total").
		Group(column).
		Order(column + " ASC").
		Scan(&counts).Error
	return counts, errors.Wrapf(err, "count devices by %s", column)
}
