package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/repository"
)

// Reconciler согласует состояние зиммета и статус устройства.
// Все методы работают внутри уже открытой транзакции (repos).
type Reconciler struct {
	now func() time.Time
}

// NewReconciler создаёт согласователь с системными часами
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// SupersedeResult - итог выдачи с вытеснением
type SupersedeResult struct {
	Assignment *domain.Assignment
	// Superseded - прежний активный зиммет, переведённый в INACTIVE
	Superseded *domain.Assignment
	// Unchanged - устройство уже выдано этому же сотруднику
	Unchanged bool
}

// Create выдаёт свободное устройство сотруднику
func (r *Reconciler) Create(ctx context.Context, repos repository.RepositoryFactory, employeeID, deviceID int64, assignedDate time.Time, notes *string) (*domain.Assignment, error) {
	device, err := repos.Devices().GetByIDForUpdate(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if device.Status != domain.DeviceAvailable {
		return nil, domain.ErrDeviceNotAvailable
	}
	if _, err := repos.Employees().GetByID(ctx, employeeID); err != nil {
		return nil, err
	}

	return r.insertActive(ctx, repos, employeeID, deviceID, assignedDate, notes)
}

// CreateOrSupersede выдаёт устройство, закрывая чужой активный зиммет как INACTIVE.
// Используется импортом: табличные данные считаются более свежими.
func (r *Reconciler) CreateOrSupersede(ctx context.Context, repos repository.RepositoryFactory, employeeID, deviceID int64, assignedDate time.Time, notes *string) (*SupersedeResult, error) {
	if _, err := repos.Devices().GetByIDForUpdate(ctx, deviceID); err != nil {
		return nil, err
	}

	result := &SupersedeResult{}
	active, err := repos.Assignments().FindActiveByDevice(ctx, deviceID)
	switch {
	case err == nil:
		if active.EmployeeID == employeeID {
			result.Assignment = active
			result.Unchanged = true
			return result, repos.Devices().UpdateStatus(ctx, deviceID, domain.DeviceAssigned)
		}
		now := r.now()
		active.Status = domain.AssignmentInactive
		active.ReturnDate = &now
		if err := repos.Assignments().Update(ctx, active); err != nil {
			return nil, err
		}
		result.Superseded = active
	case errors.Is(err, domain.ErrAssignmentNotFound):
	default:
		return nil, err
	}

	created, err := r.insertActive(ctx, repos, employeeID, deviceID, assignedDate, notes)
	if err != nil {
		return nil, err
	}
	result.Assignment = created
	return result, nil
}

// InsertHistory сохраняет завершённый зиммет из таблицы, не трогая устройство
func (r *Reconciler) InsertHistory(ctx context.Context, repos repository.RepositoryFactory, a *domain.Assignment) error {
	if !a.Status.Terminal() {
		return errors.Wrapf(domain.ErrInvalidStatus, "history record must be terminal, got %s", a.Status)
	}
	if _, err := repos.Devices().GetByID(ctx, a.DeviceID); err != nil {
		return err
	}
	if _, err := repos.Employees().GetByID(ctx, a.EmployeeID); err != nil {
		return err
	}
	return repos.Assignments().Create(ctx, a)
}

// TransitionRequest - смена состояния зиммета
type TransitionRequest struct {
	Target        domain.AssignmentStatus
	Condition     domain.ConditionTag
	Notes         *string
	RequireActive bool
}

// Transition меняет состояние зиммета и выводит из него статус устройства.
// Повтор того же состояния меняет только заметки.
func (r *Reconciler) Transition(ctx context.Context, repos repository.RepositoryFactory, id int64, req TransitionRequest) (*domain.Assignment, error) {
	a, err := repos.Assignments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequireActive && a.Status != domain.AssignmentActive {
		return nil, domain.ErrAssignmentNotActive
	}
	if !domain.CanTransition(a.Status, req.Target) {
		return nil, errors.Wrapf(domain.ErrInvalidTransition, "%s -> %s", a.Status, req.Target)
	}

	if req.Notes != nil {
		a.Notes = req.Notes
	}

	if a.Status == req.Target {
		if err := repos.Assignments().Update(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}

	// блокируем устройство до смены статуса зиммета
	if _, err := repos.Devices().GetByIDForUpdate(ctx, a.DeviceID); err != nil {
		return nil, err
	}

	a.Status = req.Target
	if req.Target != domain.AssignmentActive {
		now := r.now()
		a.ReturnDate = &now
	}
	if err := repos.Assignments().Update(ctx, a); err != nil {
		return nil, err
	}

	if err := repos.Devices().UpdateStatus(ctx, a.DeviceID, domain.DeriveDeviceStatus(req.Target, req.Condition)); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Reconciler) insertActive(ctx context.Context, repos repository.RepositoryFactory, employeeID, deviceID int64, assignedDate time.Time, notes *string) (*domain.Assignment, error) {
	if assignedDate.IsZero() {
		assignedDate = r.now()
	}
	a := &domain.Assignment{
		EmployeeID:   employeeID,
		DeviceID:     deviceID,
		AssignedDate: assignedDate,
		Status:       domain.AssignmentActive,
		Notes:        notes,
	}
	if err := repos.Assignments().Create(ctx, a); err != nil {
		return nil, err
	}
	if err := repos.Devices().UpdateStatus(ctx, deviceID, domain.DeriveDeviceStatus(domain.AssignmentActive, domain.ConditionNone)); err != nil {
		return nil, err
	}
	return a, nil
}
