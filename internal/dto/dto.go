package dto

import (
	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/repository"
)

// EmployeeRequest - запрос на создание или обновление сотрудника
type EmployeeRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=200"`
	Email      string  `json:"email" validate:"required,email,max=320"`
	Department string  `json:"department" validate:"required,min=1,max=200"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Position   *string `json:"position" validate:"omitempty,max=200"`
	Notes      *string `json:"notes"`
}

// ImportEmployeesRequest - пакетное добавление сотрудников
type ImportEmployeesRequest struct {
	Employees []EmployeeRequest `json:"employees"`
}

// DeviceRequest - запрос на создание или обновление устройства
type DeviceRequest struct {
	Type         string  `json:"type" validate:"required,min=1,max=100"`
	Brand        string  `json:"brand" validate:"required,min=1,max=100"`
	Model        string  `json:"model" validate:"required,min=1,max=200"`
	SerialNumber *string `json:"serialNumber" validate:"omitempty,max=200"`
	IMEI         *string `json:"imei" validate:"omitempty,max=50"`
	Hostname     *string `json:"hostname" validate:"omitempty,max=200"`
	UUID         *string `json:"uuid" validate:"omitempty,max=200"`
	Status       *string `json:"status" validate:"omitempty,oneof=AVAILABLE ASSIGNED MAINTENANCE REPAIR RETIRED"`
	PurchaseDate *string `json:"purchaseDate" validate:"omitempty,datetime=2006-01-02"`
	Notes        *string `json:"notes"`
}

// CreateAssignmentRequest - выдача устройства сотруднику
type CreateAssignmentRequest struct {
	EmployeeID   int64   `json:"employeeId" validate:"required,min=1"`
	DeviceID     int64   `json:"deviceId" validate:"required,min=1"`
	AssignedDate *string `json:"assignedDate"`
	Notes        *string `json:"notes"`
}

// UpdateAssignmentRequest - редактирование зиммета
type UpdateAssignmentRequest struct {
	Status string  `json:"status" validate:"required,oneof=ACTIVE RETURNED INACTIVE LOST DAMAGED"`
	Notes  *string `json:"notes"`
}

// ReturnAssignmentRequest - возврат устройства
type ReturnAssignmentRequest struct {
	DeviceCondition string  `json:"deviceCondition" validate:"required,oneof=GOOD DAMAGED"`
	ReturnNotes     *string `json:"returnNotes"`
}

// ImportAssignmentsRequest - строки таблицы зиммета
type ImportAssignmentsRequest struct {
	Assignments []RawRecord `json:"assignments"`
}

// ImportAllRequest - строки общей таблицы инвентаря
type ImportAllRequest struct {
	Rows []RawRecord `json:"rows"`
}

// AssignmentImportResult - итог импорта зиммета
type AssignmentImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// EntityCounts - счётчики по одному виду сущностей
type EntityCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ImportAllResult - итог импорта таблицы инвентаря
type ImportAllResult struct {
	Employees   EntityCounts `json:"employees"`
	Devices     EntityCounts `json:"devices"`
	Assignments EntityCounts `json:"assignments"`
	Errors      []string     `json:"errors"`
}

// Succeeded возвращает число успешно применённых записей
func (r *ImportAllResult) Succeeded() int {
	return r.Employees.Created + r.Employees.Updated +
		r.Devices.Created + r.Devices.Updated +
		r.Assignments.Created
}

// Failed возвращает число неудачных единиц работы
func (r *ImportAllResult) Failed() int {
	return r.Employees.Failed + r.Devices.Failed + r.Assignments.Failed
}

// ImportResponse - ответ на импорт
type ImportResponse struct {
	Message string `json:"message"`
	Results any    `json:"results"`
}

// ImportEmployeesResponse - ответ на пакетное добавление сотрудников
type ImportEmployeesResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// ReportSummary - сводка для страницы отчётов
type ReportSummary struct {
	DevicesByStatus   []repository.GroupCount `json:"devicesByStatus"`
	DevicesByType     []repository.GroupCount `json:"devicesByType"`
	ActiveAssignments int64                   `json:"activeAssignments"`
	EmployeeCount     int64                   `json:"employeeCount"`
	RecentAssignments []domain.Assignment     `json:"recentAssignments"`
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}
