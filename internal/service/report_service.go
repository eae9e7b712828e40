package service

import (
	"context"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/repository"
)

const recentAssignmentsLimit = 5

// ReportService собирает сводку по инвентарю
type ReportService interface {
	Summary(ctx context.Context) (*dto.ReportSummary, error)
}

type reportService struct {
	employees   repository.EmployeeRepository
	devices     repository.DeviceRepository
	assignments repository.AssignmentRepository
}

// NewReportService создаёт новый экземпляр сервиса
func NewReportService(
	employees repository.EmployeeRepository,
	devices repository.DeviceRepository,
	assignments repository.AssignmentRepository,
) ReportService {
	return &reportService{employees: employees, devices: devices, assignments: assignments}
}

func (s *reportService) Summary(ctx context.Context) (*dto.ReportSummary, error) {
	byStatus, err := s.devices.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.devices.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.assignments.CountByStatus(ctx, domain.AssignmentActive)
	if err != nil {
		return nil, err
	}
	employees, err := s.employees.Count(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.assignments.List(ctx, repository.AssignmentFilter{Limit: recentAssignmentsLimit})
	if err != nil {
		return nil, err
	}

	return &dto.ReportSummary{
		DevicesByStatus:   byStatus,
		DevicesByType:     byType,
		ActiveAssignments: active,
		EmployeeCount:     employees,
		RecentAssignments: recent,
	}, nil
}
