package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/repository"
)

// statusAll в фильтре списка снимает ограничение по состоянию
const statusAll = "ALL"

// AssignmentService определяет интерфейс бизнес-логики для зиммета
type AssignmentService interface {
	List(ctx context.Context, status string) ([]domain.Assignment, error)
	GetByID(ctx context.Context, id int64) (*domain.Assignment, error)
	Create(ctx context.Context, req *dto.CreateAssignmentRequest) (*domain.Assignment, error)
	Update(ctx context.Context, id int64, req *dto.UpdateAssignmentRequest) (*domain.Assignment, error)
	Return(ctx context.Context, id int64, req *dto.ReturnAssignmentRequest) (*domain.Assignment, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	tm          repository.TransactionManager
	reconciler  *Reconciler
	logger      *slog.Logger
}

// NewAssignmentService создаёт новый экземпляр сервиса
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	tm repository.TransactionManager,
	reconciler *Reconciler,
	logger *slog.Logger,
) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		tm:          tm,
		reconciler:  reconciler,
		logger:      logger,
	}
}

func (s *assignmentService) List(ctx context.Context, status string) ([]domain.Assignment, error) {
	filter := repository.AssignmentFilter{}
	status = strings.ToUpper(strings.TrimSpace(status))

	switch status {
	case statusAll:
	case "":
		active := domain.AssignmentActive
		filter.Status = &active
	default:
		st := domain.AssignmentStatus(status)
		if !st.Valid() {
			return nil, domain.NewValidationError("invalid status filter", status)
		}
		filter.Status = &st
	}

	return s.assignments.List(ctx, filter)
}

func (s *assignmentService) GetByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	return s.assignments.GetByIDWithRelations(ctx, id)
}

func (s *assignmentService) Create(ctx context.Context, req *dto.CreateAssignmentRequest) (*domain.Assignment, error) {
	var assignedDate time.Time
	if req.AssignedDate != nil && !absent(*req.AssignedDate) {
		parsed, err := parseDate(*req.AssignedDate)
		if err != nil {
			return nil, domain.NewValidationError("invalid assignedDate", err.Error())
		}
		assignedDate = parsed
	}

	var created *domain.Assignment
	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		a, err := s.reconciler.Create(ctx, repos, req.EmployeeID, req.DeviceID, assignedDate, optionalPtr(req.Notes))
		if err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment created",
		slog.Int64("assignment_id", created.ID),
		slog.Int64("employee_id", created.EmployeeID),
		slog.Int64("device_id", created.DeviceID),
	)
	return s.assignments.GetByIDWithRelations(ctx, created.ID)
}

func (s *assignmentService) Update(ctx context.Context, id int64, req *dto.UpdateAssignmentRequest) (*domain.Assignment, error) {
	target := domain.AssignmentStatus(req.Status)
	if !target.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	return s.transition(ctx, id, TransitionRequest{
		Target: target,
		Notes:  optionalPtr(req.Notes),
	})
}

func (s *assignmentService) Return(ctx context.Context, id int64, req *dto.ReturnAssignmentRequest) (*domain.Assignment, error) {
	return s.transition(ctx, id, TransitionRequest{
		Target:        domain.AssignmentReturned,
		Condition:     domain.ConditionTag(req.DeviceCondition),
		Notes:         optionalPtr(req.ReturnNotes),
		RequireActive: true,
	})
}

func (s *assignmentService) transition(ctx context.Context, id int64, req TransitionRequest) (*domain.Assignment, error) {
	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		_, err := s.reconciler.Transition(ctx, repos, id, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment status changed",
		slog.Int64("assignment_id", id),
		slog.String("status", string(req.Target)),
	)
	return s.assignments.GetByIDWithRelations(ctx, id)
}

// optionalPtr обрезает строку и превращает пустую в nil
func optionalPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
