package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/repository"
)

// EmployeeService определяет интерфейс бизнес-логики для сотрудников
type EmployeeService interface {
	List(ctx context.Context) ([]domain.Employee, error)
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	Create(ctx context.Context, req *dto.EmployeeRequest) (*domain.Employee, error)
	Update(ctx context.Context, id int64, req *dto.EmployeeRequest) (*domain.Employee, error)
	Import(ctx context.Context, reqs []dto.EmployeeRequest) (int, error)
}

type employeeService struct {
	empRepo   repository.EmployeeRepository
	tm        repository.TransactionManager
	validator *validator.Validate
	logger    *slog.Logger
}

// NewEmployeeService создаёт новый экземпляр сервиса
func NewEmployeeService(empRepo repository.EmployeeRepository, tm repository.TransactionManager, logger *slog.Logger) EmployeeService {
	return &employeeService{
		empRepo:   empRepo,
		tm:        tm,
		validator: newValidator(),
		logger:    logger,
	}
}

func (s *employeeService) List(ctx context.Context) ([]domain.Employee, error) {
	return s.empRepo.List(ctx)
}

func (s *employeeService) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	return s.empRepo.GetByIDWithActiveAssignments(ctx, id)
}

func (s *employeeService) Create(ctx context.Context, req *dto.EmployeeRequest) (*domain.Employee, error) {
	emp := &domain.Employee{}
	applyEmployeeRequest(emp, req)

	// Проверяем уникальность email
	exists, err := s.empRepo.ExistsByEmail(ctx, emp.Email, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	if err := s.empRepo.Create(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *employeeService) Update(ctx context.Context, id int64, req *dto.EmployeeRequest) (*domain.Employee, error) {
	emp, err := s.empRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	if email != emp.Email {
		exists, err := s.empRepo.ExistsByEmail(ctx, email, &id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrDuplicateEmail
		}
	}

	applyEmployeeRequest(emp, req)
	if err := s.empRepo.Update(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

// Import добавляет сотрудников пакетом: либо все, либо ни одного
func (s *employeeService) Import(ctx context.Context, reqs []dto.EmployeeRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, domain.NewValidationError("employees list is empty", nil)
	}

	var rowErrors []RowError
	seen := make(map[string]int, len(reqs))
	emails := make([]string, 0, len(reqs))
	for i := range reqs {
		line := i + 1
		if err := s.validator.Struct(&reqs[i]); err != nil {
			rowErrors = append(rowErrors, RowError{Row: line, Errors: describeValidation(err)})
			continue
		}
		email := strings.TrimSpace(reqs[i].Email)
		if first, dup := seen[email]; dup {
			rowErrors = append(rowErrors, RowError{Row: line, Errors: []string{fmt.Sprintf("email %s repeats row %d", email, first)}})
			continue
		}
		seen[email] = line
		emails = append(emails, email)
	}
	if len(rowErrors) > 0 {
		return 0, domain.NewValidationError("invalid employee rows", rowErrors)
	}

	existing, err := s.empRepo.ExistingEmails(ctx, emails)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, domain.NewValidationError("some email addresses are already registered", existing)
	}

	employees := make([]*domain.Employee, 0, len(reqs))
	for i := range reqs {
		emp := &domain.Employee{}
		applyEmployeeRequest(emp, &reqs[i])
		employees = append(employees, emp)
	}

	err = s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		return repos.Employees().CreateBatch(ctx, employees)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("employees imported", slog.Int("count", len(employees)))
	return len(employees), nil
}

func applyEmployeeRequest(emp *domain.Employee, req *dto.EmployeeRequest) {
	emp.Name = strings.TrimSpace(req.Name)
	emp.Email = strings.TrimSpace(req.Email)
	emp.Department = strings.TrimSpace(req.Department)
	emp.Phone = optionalPtr(req.Phone)
	emp.Position = optionalPtr(req.Position)
	emp.Notes = optionalPtr(req.Notes)
}
