package service

import (
	"context"
	"strings"
	"time"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/repository"
)

// DeviceService определяет интерфейс бизнес-логики для устройств
type DeviceService interface {
	List(ctx context.Context) ([]domain.Device, error)
	GetByID(ctx context.Context, id int64) (*domain.Device, error)
	Create(ctx context.Context, req *dto.DeviceRequest) (*domain.Device, error)
	Update(ctx context.Context, id int64, req *dto.DeviceRequest) (*domain.Device, error)
}

type deviceService struct {
	deviceRepo repository.DeviceRepository
	now        func() time.Time
}

// NewDeviceService создаёт новый экземпляр сервиса
func NewDeviceService(deviceRepo repository.DeviceRepository) DeviceService {
	return &deviceService{deviceRepo: deviceRepo, now: time.Now}
}

func (s *deviceService) List(ctx context.Context) ([]domain.Device, error) {
	return s.deviceRepo.List(ctx)
}

func (s *deviceService) GetByID(ctx context.Context, id int64) (*domain.Device, error) {
	return s.deviceRepo.GetByIDWithHistory(ctx, id)
}

func (s *deviceService) Create(ctx context.Context, req *dto.DeviceRequest) (*domain.Device, error) {
	device := &domain.Device{Status: domain.DeviceAvailable, PurchaseDate: s.now()}
	if req.Status != nil {
		status := domain.DeviceStatus(*req.Status)
		// ASSIGNED выставляется только через зиммет
		if status == domain.DeviceAssigned {
			return nil, domain.ErrAssignedStatusReserved
		}
		device.Status = status
	}

	if err := s.apply(device, req); err != nil {
		return nil, err
	}
	if err := s.checkSerial(ctx, device.SerialNumber, nil); err != nil {
		return nil, err
	}

	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *deviceService) Update(ctx context.Context, id int64, req *dto.DeviceRequest) (*domain.Device, error) {
	device, err := s.deviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		status := domain.DeviceStatus(*req.Status)
		if status != device.Status && (status == domain.DeviceAssigned || device.Status == domain.DeviceAssigned) {
			return nil, domain.ErrAssignedStatusReserved
		}
		device.Status = status
	}

	if err := s.apply(device, req); err != nil {
		return nil, err
	}
	if err := s.checkSerial(ctx, device.SerialNumber, &id); err != nil {
		return nil, err
	}

	if err := s.deviceRepo.Update(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *deviceService) apply(device *domain.Device, req *dto.DeviceRequest) error {
	device.Type = strings.TrimSpace(req.Type)
	device.Brand = strings.TrimSpace(req.Brand)
	device.Model = strings.TrimSpace(req.Model)
	device.SerialNumber = optionalPtr(req.SerialNumber)
	device.IMEI = optionalPtr(req.IMEI)
	device.Hostname = optionalPtr(req.Hostname)
	device.UUID = optionalPtr(req.UUID)
	device.Notes = optionalPtr(req.Notes)

	if req.PurchaseDate != nil {
		purchased, err := time.ParseInLocation("2006-01-02", *req.PurchaseDate, time.Local)
		if err != nil {
			return domain.NewValidationError("invalid purchaseDate", err.Error())
		}
		device.PurchaseDate = purchased
	}
	return nil
}

func (s *deviceService) checkSerial(ctx context.Context, serial *string, excludeID *int64) error {
	if serial == nil {
		return nil
	}
	exists, err := s.deviceRepo.ExistsBySerialNumber(ctx, *serial, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrDuplicateSerialNumber
	}
	return nil
}
