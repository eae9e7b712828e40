package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zimmet-api/internal/database/dbtest"
	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/repository"
)

func ptr(s string) *string { return &s }

func seedEmployee(t *testing.T, db *gorm.DB, name, email string) *domain.Employee {
	t.Helper()
	emp := &domain.Employee{Name: name, Email: email, Department: "IT"}
	require.NoError(t, repository.NewEmployeeRepository(db).Create(context.Background(), emp))
	return emp
}

func seedDevice(t *testing.T, db *gorm.DB, d *domain.Device) *domain.Device {
	t.Helper()
	if d.PurchaseDate.IsZero() {
		d.PurchaseDate = time.Now()
	}
	require.NoError(t, repository.NewDeviceRepository(db).Create(context.Background(), d))
	return d
}

func TestEmployeeRepository_DuplicateEmail(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	seedEmployee(t, db, "Ayşe Yılmaz", "ayse@sirket.com")

	err := repo.Create(ctx, &domain.Employee{Name: "Other", Email: "ayse@sirket.com", Department: "HR"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	// case-sensitive match is preserved
	err = repo.Create(ctx, &domain.Employee{Name: "Other", Email: "AYSE@sirket.com", Department: "HR"})
	assert.NoError(t, err)

	emails, err := repo.ExistingEmails(ctx, []string{"ayse@sirket.com", "nobody@sirket.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ayse@sirket.com"}, emails)
}

func TestEmployeeRepository_FindByName(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	first := seedEmployee(t, db, "Mehmet Demir", "mehmet@sirket.com")
	seedEmployee(t, db, "Mehmet Demir", "mehmet2@sirket.com")

	found, err := repo.FindByName(ctx, "Mehmet Demir")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindByName(ctx, "Nobody")
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestDeviceRepository_FindByIdentifiers(t *testing.T) {
	db := dbtest.Open(t)
	repo := repository.NewDeviceRepository(db)
	ctx := context.Background()

	phone := seedDevice(t, db, &domain.Device{Type: "Telefon", Brand: "Apple", Model: "iPhone 13", SerialNumber: ptr("SN-1"), IMEI: ptr("3569")})
	laptop := seedDevice(t, db, &domain.Device{Type: "Bilgisayar", Brand: "Dell", Model: "Latitude", UUID: ptr("uuid-7")})

	tests := []struct {
		name string
		ids  repository.DeviceIdentifiers
		want int64
	}{
		{"serial only", repository.DeviceIdentifiers{SerialNumber: ptr("SN-1")}, phone.ID},
		{"imei matches even when serial differs", repository.DeviceIdentifiers{SerialNumber: ptr("SN-X"), IMEI: ptr("3569")}, phone.ID},
		{"uuid only", repository.DeviceIdentifiers{UUID: ptr("uuid-7")}, laptop.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByIdentifiers(ctx, tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	_, err := repo.FindByIdentifiers(ctx, repository.DeviceIdentifiers{IMEI: ptr("none")})
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)

	_, err = repo.FindByIdentifiers(ctx, repository.DeviceIdentifiers{})
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestDeviceRepository_DuplicateSerial(t *testing.T) {
	db := dbtest.Open(t)
	seedDevice(t, db, &domain.Device{Type: "Tablet", Brand: "Samsung", Model: "Tab", SerialNumber: ptr("T-1")})

	err := repository.NewDeviceRepository(db).Create(context.Background(),
		&domain.Device{Type: "Tablet", Brand: "Samsung", Model: "Tab", SerialNumber: ptr("T-1"), PurchaseDate: time.Now()})
	assert.ErrorIs(t, err, domain.ErrDuplicateSerialNumber)
}

func TestDeviceRepository_CountByStatus(t *testing.T) {
	db := dbtest.Open(t)
	seedDevice(t, db, &domain.Device{Type: "Telefon", Brand: "A", Model: "1", Status: domain.DeviceAvailable})
	seedDevice(t, db, &domain.Device{Type: "Telefon", Brand: "A", Model: "2", Status: domain.DeviceAvailable})
	seedDevice(t, db, &domain.Device{Type: "Tablet", Brand: "B", Model: "3", Status: domain.DeviceRetired})

	repo := repository.NewDeviceRepository(db)
	byStatus, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []repository.GroupCount{{Key: "AVAILABLE", Count: 2}, {Key: "RETIRED", Count: 1}}, byStatus)

	byType, err := repo.CountByType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []repository.GroupCount{{Key: "Tablet", Count: 1}, {Key: "Telefon", Count: 2}}, byType)
}

func TestAssignmentRepository_SecondActiveIsRejected(t *testing.T) {
	db := dbtest.Open(t)
	emp := seedEmployee(t, db, "A", "a@sirket.com")
	dev := seedDevice(t, db, &domain.Device{Type: "Telefon", Brand: "A", Model: "1"})
	repo := repository.NewAssignmentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Assignment{EmployeeID: emp.ID, DeviceID: dev.ID, AssignedDate: time.Now(), Status: domain.AssignmentActive}))

	err := repo.Create(ctx, &domain.Assignment{EmployeeID: emp.ID, DeviceID: dev.ID, AssignedDate: time.Now(), Status: domain.AssignmentActive})
	assert.ErrorIs(t, err, domain.ErrDeviceNotAvailable)

	active, err := repo.FindActiveByDevice(ctx, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, active.EmployeeID)
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	tm := repository.NewTransactionManager(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		if err := repos.Employees().Create(ctx, &domain.Employee{Name: "Tx", Email: "tx@sirket.com", Department: "IT"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repository.NewEmployeeRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTransactionManager_WrapsBeginError(t *testing.T) {
	db := dbtest.Open(t)
	tm := repository.NewTransactionManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tm.Execute(ctx, func(repository.RepositoryFactory) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)
}
