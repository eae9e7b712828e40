package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/repository"
)

// resolveOutcome показывает, что сделал резолвер с найденной сущностью
type resolveOutcome int

const (
	outcomeExisting resolveOutcome = iota
	outcomeCreated
	outcomeUpdated
)

// IdentityResolver находит сотрудников и устройства по данным таблицы
// и создаёт недостающие записи
type IdentityResolver struct {
	emailDomain string
	now         func() time.Time
}

// NewIdentityResolver создаёт резолвер; emailDomain используется для адресов новых сотрудников
func NewIdentityResolver(emailDomain string) *IdentityResolver {
	return &IdentityResolver{emailDomain: emailDomain, now: time.Now}
}

// EmployeeByEmail требует существующего сотрудника
func (r *IdentityResolver) EmployeeByEmail(ctx context.Context, repo repository.EmployeeRepository, email string) (*domain.Employee, error) {
	if absent(email) {
		return nil, domain.ErrEmployeeIdentityMissing
	}
	emp, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, errors.Wrapf(err, "email %s", email)
	}
	return emp, nil
}

// DeviceBySerial требует существующего устройства
func (r *IdentityResolver) DeviceBySerial(ctx context.Context, repo repository.DeviceRepository, serial string) (*domain.Device, error) {
	if absent(serial) {
		return nil, domain.ErrDeviceIdentityMissing
	}
	device, err := repo.GetBySerialNumber(ctx, strings.TrimSpace(serial))
	if err != nil {
		return nil, errors.Wrapf(err, "serial number %s", serial)
	}
	return device, nil
}

// EmployeeByName находит сотрудника по имени (первый по id) или создаёт нового.
// Отличающийся отдел из таблицы обновляет запись.
func (r *IdentityResolver) EmployeeByName(ctx context.Context, repo repository.EmployeeRepository, name, department string) (*domain.Employee, resolveOutcome, error) {
	if absent(name) {
		return nil, outcomeExisting, domain.ErrEmployeeIdentityMissing
	}
	name = strings.TrimSpace(name)

	emp, err := repo.FindByName(ctx, name)
	switch {
	case err == nil:
		if department == "" || department == emp.Department {
			return emp, outcomeExisting, nil
		}
		emp.Department = department
		if err := repo.Update(ctx, emp); err != nil {
			return nil, outcomeExisting, err
		}
		return emp, outcomeUpdated, nil
	case !errors.Is(err, domain.ErrEmployeeNotFound):
		return nil, outcomeExisting, err
	}

	if department == "" {
		department = unspecified
	}
	email, err := r.freeEmail(ctx, repo, name)
	if err != nil {
		return nil, outcomeExisting, err
	}
	emp = &domain.Employee{
		Name:       name,
		Email:      email,
		Department: department,
	}
	if err := repo.Create(ctx, emp); err != nil {
		return nil, outcomeExisting, errors.Wrapf(err, "create employee %s", name)
	}
	return emp, outcomeCreated, nil
}

// maxEmailSuffix ограничивает перебор суффиксов для совпадающих адресов
const maxEmailSuffix = 100

// freeEmail подбирает незанятый адрес. Имена, совпадающие после свёртки
// ("Ayşe Kaya" и "Ayse Kaya"), получают суффикс: ayse.kaya.2@domain.
func (r *IdentityResolver) freeEmail(ctx context.Context, repo repository.EmployeeRepository, name string) (string, error) {
	for n := 1; n <= maxEmailSuffix; n++ {
		email := emailFromName(name, r.emailDomain, n)
		taken, err := repo.ExistsByEmail(ctx, email, nil)
		if err != nil {
			return "", err
		}
		if !taken {
			return email, nil
		}
	}
	return "", errors.Wrapf(domain.ErrDuplicateEmail, "no free email for %s", name)
}

// Device находит устройство по любому из идентификаторов слота или создаёт новое.
// Отсутствующие в таблице идентификаторы не стирают сохранённые.
func (r *IdentityResolver) Device(ctx context.Context, repo repository.DeviceRepository, slot DeviceSlot, owner string) (*domain.Device, resolveOutcome, error) {
	ids := slot.Identifiers()
	if !ids.Empty() {
		device, err := repo.FindByIdentifiers(ctx, ids)
		switch {
		case err == nil:
			applySlot(device, slot)
			device.Status = domain.DeviceAssigned
			if err := repo.Update(ctx, device); err != nil {
				return nil, outcomeExisting, err
			}
			return device, outcomeUpdated, nil
		case !errors.Is(err, domain.ErrDeviceNotFound):
			return nil, outcomeExisting, err
		}
	}

	notes := fmt.Sprintf("%s için %s kaydı", owner, strings.ToLower(slot.Kind))
	device := &domain.Device{
		Type:         slot.Kind,
		Brand:        slot.Brand,
		Model:        slot.Model,
		SerialNumber: slot.SerialNumber,
		IMEI:         slot.IMEI,
		Hostname:     slot.Hostname,
		UUID:         slot.UUID,
		Status:       domain.DeviceAssigned,
		PurchaseDate: r.now(),
		Notes:        &notes,
	}
	if err := repo.Create(ctx, device); err != nil {
		return nil, outcomeExisting, err
	}
	return device, outcomeCreated, nil
}

// applySlot переносит значения из таблицы, сохраняя то, чего в таблице нет
func applySlot(device *domain.Device, slot DeviceSlot) {
	device.Type = slot.Kind
	if slot.HasBrand {
		device.Brand = slot.Brand
		device.Model = slot.Model
	}
	if slot.SerialNumber != nil {
		device.SerialNumber = slot.SerialNumber
	}
	if slot.IMEI != nil {
		device.IMEI = slot.IMEI
	}
	if slot.Hostname != nil {
		device.Hostname = slot.Hostname
	}
	if slot.UUID != nil {
		device.UUID = slot.UUID
	}
}
