package domain

import (
	"time"
)

// Employee представляет сотрудника, которому выдаются устройства
type Employee struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string    `json:"name" gorm:"type:varchar(200);not null;index"`
	Email      string    `json:"email" gorm:"type:varchar(320);not null;uniqueIndex"`
	Department string    `json:"department" gorm:"type:varchar(200);not null"`
	Phone      *string   `json:"phone"`
	Position   *string   `json:"position"`
	Notes      *string   `json:"notes"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:EmployeeID"`
}

// TableName задаёт имя таблицы для GORM
func (Employee) TableName() string {
	return "employees"
}

// Device представляет учётную единицу оборудования.
// Type - свободная категория ("Bilgisayar", "Telefon", "Tablet", ...)
type Device struct {
	ID           int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	Type         string       `json:"type" gorm:"type:varchar(100);not null"`
	Brand        string       `json:"brand" gorm:"type:varchar(100);not null"`
	Model        string       `json:"model" gorm:"type:varchar(200);not null"`
	SerialNumber *string      `json:"serialNumber" gorm:"uniqueIndex"`
	IMEI         *string      `json:"imei" gorm:"column:imei;index"`
	Hostname     *string      `json:"hostname"`
	UUID         *string      `json:"uuid" gorm:"column:uuid;index"`
	Status       DeviceStatus `json:"status" gorm:"type:varchar(20);not null;default:AVAILABLE"`
	PurchaseDate time.Time    `json:"purchaseDate"`
	Notes        *string      `json:"notes"`
	CreatedAt    time.Time    `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updatedAt" gorm:"autoUpdateTime"`

	Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:DeviceID"`
}

// TableName задаёт имя таблицы для GORM
func (Device) TableName() string {
	return "devices"
}

// Assignment (zimmet) - факт выдачи устройства сотруднику
type Assignment struct {
	ID           int64            `json:"id" gorm:"primaryKey;autoIncrement"`
	EmployeeID   int64            `json:"employeeId" gorm:"not null;index"`
	DeviceID     int64            `json:"deviceId" gorm:"not null;index"`
	AssignedDate time.Time        `json:"assignedDate" gorm:"not null"`
	ReturnDate   *time.Time       `json:"returnDate"`
	Status       AssignmentStatus `json:"status" gorm:"type:varchar(20);not null;default:ACTIVE"`
	Notes        *string          `json:"notes"`
	CreatedAt    time.Time        `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time        `json:"updatedAt" gorm:"autoUpdateTime"`

	Employee *Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	Device   *Device   `json:"device,omitempty" gorm:"foreignKey:DeviceID"`
}

// TableName задаёт имя таблицы для GORM
func (Assignment) TableName() string {
	return "assignments"
}
