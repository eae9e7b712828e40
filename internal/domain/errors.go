package domain

import "errors"

// Определение бизнес-ошибок
var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrAssignmentNotFound = errors.New("assignment not found")

	ErrDuplicateEmail        = errors.New("email address is already used by another employee")
	ErrDuplicateSerialNumber = errors.New("a device with this serial number already exists")

	ErrDeviceNotAvailable     = errors.New("device is already assigned to another employee")
	ErrAssignmentNotActive    = errors.New("this assignment cannot be acted upon")
	ErrInvalidTransition      = errors.New("assignment status transition is not allowed")
	ErrInvalidStatus          = errors.New("invalid status value")
	ErrAssignedStatusReserved = errors.New("device status ASSIGNED is managed by assignments")

	ErrEmployeeIdentityMissing = errors.New("employee could not be identified")
	ErrDeviceIdentityMissing   = errors.New("device could not be identified")
)

// ValidationError - ошибка входных данных с подробностями для клиента
type ValidationError struct {
	Message string
	Details any
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError создаёт ошибку валидации
func NewValidationError(message string, details any) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}
