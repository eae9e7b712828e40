package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zimmet-api/internal/database/dbtest"
	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/repository"
)

var errStoreDown = errors.New("store is down")

func ptr(s string) *string { return &s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	t     *testing.T
	db    *gorm.DB
	tm    repository.TransactionManager
	repos repository.RepositoryFactory
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	return &fixture{
		t:     t,
		db:    db,
		tm:    repository.NewTransactionManager(db),
		repos: repository.NewRepositoryFactory(db),
		now:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local),
	}
}

func (f *fixture) reconciler() *Reconciler {
	return &Reconciler{now: func() time.Time { return f.now }}
}

func (f *fixture) employee(name, email string) *domain.Employee {
	f.t.Helper()
	emp := &domain.Employee{Name: name, Email: email, Department: "IT"}
	require.NoError(f.t, f.repos.Employees().Create(context.Background(), emp))
	return emp
}

func (f *fixture) device(serial string, status domain.DeviceStatus) *domain.Device {
	f.t.Helper()
	d := &domain.Device{
		Type:         "Telefon",
		Brand:        "Apple",
		Model:        "iPhone 13",
		SerialNumber: ptr(serial),
		Status:       status,
		PurchaseDate: f.now,
	}
	require.NoError(f.t, f.repos.Devices().Create(context.Background(), d))
	return d
}

func (f *fixture) assign(emp *domain.Employee, dev *domain.Device) *domain.Assignment {
	f.t.Helper()
	var a *domain.Assignment
	err := f.tm.Execute(context.Background(), func(repos repository.RepositoryFactory) error {
		var err error
		a, err = f.reconciler().Create(context.Background(), repos, emp.ID, dev.ID, f.now, nil)
		return err
	})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) reloadDevice(id int64) *domain.Device {
	f.t.Helper()
	d, err := f.repos.Devices().GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return d
}

func (f *fixture) reloadAssignment(id int64) *domain.Assignment {
	f.t.Helper()
	a, err := f.repos.Assignments().GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return a
}

// requireConsistent проверяет: не более одного ACTIVE на устройство
// и ASSIGNED тогда и только тогда, когда есть ACTIVE
func (f *fixture) requireConsistent() {
	f.t.Helper()
	ctx := context.Background()

	devices, err := f.repos.Devices().List(ctx)
	require.NoError(f.t, err)

	all, err := f.repos.Assignments().List(ctx, repository.AssignmentFilter{})
	require.NoError(f.t, err)

	active := map[int64]int{}
	for _, a := range all {
		if a.Status == domain.AssignmentActive {
			active[a.DeviceID]++
		}
	}
	for _, d := range devices {
		require.LessOrEqual(f.t, active[d.ID], 1, "device %d has several ACTIVE assignments", d.ID)
		require.Equal(f.t, active[d.ID] == 1, d.Status == domain.DeviceAssigned,
			"device %d status %s does not match its assignments", d.ID, d.Status)
	}
}

// failingTM подменяет обновление статуса устройства ошибкой внутри транзакции
type failingTM struct {
	inner repository.TransactionManager
}

func (f failingTM) Execute(ctx context.Context, fn func(repos repository.RepositoryFactory) error) error {
	return f.inner.Execute(ctx, func(repos repository.RepositoryFactory) error {
		return fn(failingFactory{repos})
	})
}

type failingFactory struct {
	repository.RepositoryFactory
}

func (f failingFactory) Devices() repository.DeviceRepository {
	return failingDevices{f.RepositoryFactory.Devices()}
}

type failingDevices struct {
	repository.DeviceRepository
}

func (failingDevices) UpdateStatus(context.Context, int64, domain.DeviceStatus) error {
	return errStoreDown
}
