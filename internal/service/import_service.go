package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/repository"
)

// ImportService загружает табличные данные построчно с частичным успехом
type ImportService interface {
	ImportAssignments(ctx context.Context, records []dto.RawRecord) (*dto.AssignmentImportResult, error)
	ImportAll(ctx context.Context, records []dto.RawRecord) (*dto.ImportAllResult, error)
}

// ImportOptions - ограничения импорта
type ImportOptions struct {
	MaxRows int
}

type importService struct {
	tm         repository.TransactionManager
	reconciler *Reconciler
	resolver   *IdentityResolver
	validator  *validator.Validate
	opts       ImportOptions
	logger     *slog.Logger
}

// NewImportService создаёт новый экземпляр сервиса
func NewImportService(
	tm repository.TransactionManager,
	reconciler *Reconciler,
	resolver *IdentityResolver,
	opts ImportOptions,
	logger *slog.Logger,
) ImportService {
	return &importService{
		tm:         tm,
		reconciler: reconciler,
		resolver:   resolver,
		validator:  newValidator(),
		opts:       opts,
		logger:     logger,
	}
}

func (s *importService) checkSize(records []dto.RawRecord) error {
	if len(records) == 0 {
		return domain.NewValidationError("no rows to import", nil)
	}
	if s.opts.MaxRows > 0 && len(records) > s.opts.MaxRows {
		return domain.NewValidationError(
			fmt.Sprintf("too many rows: %d, limit is %d", len(records), s.opts.MaxRows), nil)
	}
	return nil
}

// ImportAssignments применяет строки зиммета. Строки без обязательных полей
// отклоняют весь запрос; неразобранные значения и ошибки сверки
// засчитываются только своей строке.
func (s *importService) ImportAssignments(ctx context.Context, records []dto.RawRecord) (*dto.AssignmentImportResult, error) {
	if err := s.checkSize(records); err != nil {
		return nil, err
	}

	type parsedRow struct {
		row      *AssignmentRow
		problems []string
	}
	parsed := make([]parsedRow, 0, len(records))
	var invalid []RowError
	for i, rec := range records {
		line := rec.Line(i + 1)
		row, missing, problems := parseAssignmentRow(s.validator, line, rec)
		if len(missing) > 0 {
			invalid = append(invalid, RowError{Row: line, Errors: missing})
			continue
		}
		parsed = append(parsed, parsedRow{row: row, problems: problems})
	}
	if len(invalid) > 0 {
		return nil, domain.NewValidationError("some rows are missing required fields", invalid)
	}

	result := &dto.AssignmentImportResult{Errors: []string{}}
	fail := func(row *AssignmentRow, reason string) {
		s.logger.Warn("assignment row failed", slog.Int("row", row.Line), slog.String("error", reason))
		result.Failed++
		result.Errors = append(result.Errors,
			fmt.Sprintf("row %d (%s / %s): %s", row.Line, row.EmployeeEmail, row.DeviceSerialNumber, reason))
	}

	for _, p := range parsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(p.problems) > 0 {
			fail(p.row, strings.Join(p.problems, "; "))
			continue
		}
		if err := s.importAssignmentRow(ctx, p.row); err != nil {
			fail(p.row, err.Error())
			continue
		}
		result.Success++
	}

	s.logger.Info("assignments imported",
		slog.Int("success", result.Success),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *importService) importAssignmentRow(ctx context.Context, row *AssignmentRow) error {
	return s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		emp, err := s.resolver.EmployeeByEmail(ctx, repos.Employees(), row.EmployeeEmail)
		if err != nil {
			return err
		}
		device, err := s.resolver.DeviceBySerial(ctx, repos.Devices(), row.DeviceSerialNumber)
		if err != nil {
			return err
		}

		if row.Status == domain.AssignmentActive {
			_, err := s.reconciler.CreateOrSupersede(ctx, repos, emp.ID, device.ID, row.AssignedDate, row.Notes)
			return err
		}

		return s.reconciler.InsertHistory(ctx, repos, &domain.Assignment{
			EmployeeID:   emp.ID,
			DeviceID:     device.ID,
			AssignedDate: row.AssignedDate,
			ReturnDate:   row.ReturnDate,
			Status:       row.Status,
			Notes:        row.Notes,
		})
	})
}

// ImportAll применяет общую таблицу инвентаря: сотрудник по имени,
// до трёх устройств на строку, каждое устройство с зимметом в своей транзакции.
func (s *importService) ImportAll(ctx context.Context, records []dto.RawRecord) (*dto.ImportAllResult, error) {
	if err := s.checkSize(records); err != nil {
		return nil, err
	}

	result := &dto.ImportAllResult{Errors: []string{}}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := rec.Line(i + 1)
		row, skip, err := parseInventoryRow(line, rec)
		if skip {
			continue
		}
		if err != nil {
			result.Employees.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		emp, ok := s.importEmployee(ctx, row, result)
		if !ok {
			continue
		}
		for _, slot := range row.Slots {
			s.importSlot(ctx, row, emp, slot, result)
		}
	}

	s.logger.Info("inventory imported",
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", result.Failed()),
	)
	return result, nil
}

func (s *importService) importEmployee(ctx context.Context, row *InventoryRow, result *dto.ImportAllResult) (*domain.Employee, bool) {
	var (
		emp     *domain.Employee
		outcome resolveOutcome
	)
	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		var err error
		emp, outcome, err = s.resolver.EmployeeByName(ctx, repos.Employees(), row.Name, row.Department)
		return err
	})
	if err != nil {
		s.logger.Warn("inventory employee failed", slog.Int("row", row.Line), slog.Any("error", err))
		result.Employees.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): %v", row.Line, row.Name, err))
		return nil, false
	}

	switch outcome {
	case outcomeCreated:
		result.Employees.Created++
	case outcomeUpdated:
		result.Employees.Updated++
	}
	return emp, true
}

func (s *importService) importSlot(ctx context.Context, row *InventoryRow, emp *domain.Employee, slot DeviceSlot, result *dto.ImportAllResult) {
	var (
		outcome      resolveOutcome
		supersede    *SupersedeResult
		deviceStaged bool
	)
	err := s.tm.Execute(ctx, func(repos repository.RepositoryFactory) error {
		device, o, err := s.resolver.Device(ctx, repos.Devices(), slot, emp.Name)
		if err != nil {
			return err
		}
		outcome = o
		deviceStaged = true

		supersede, err = s.reconciler.CreateOrSupersede(ctx, repos, emp.ID, device.ID, time.Time{}, nil)
		return err
	})
	if err != nil {
		if deviceStaged {
			result.Assignments.Failed++
		} else {
			result.Devices.Failed++
		}
		s.logger.Warn("inventory device failed",
			slog.Int("row", row.Line),
			slog.String("device", slot.Label()),
			slog.Any("error", err),
		)
		result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s, %s): %v", row.Line, row.Name, slot.Label(), err))
		return
	}

	switch outcome {
	case outcomeCreated:
		result.Devices.Created++
	case outcomeUpdated:
		result.Devices.Updated++
	}
	if supersede.Unchanged {
		return
	}
	result.Assignments.Created++
	if supersede.Superseded != nil {
		result.Assignments.Updated++
	}
}
