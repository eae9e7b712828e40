package service

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/repository"
)

// unspecified подставляется вместо неизвестной марки, модели или отдела
const unspecified = "Belirlenmemiş"

// Псевдонимы полей таблицы зиммета в порядке приоритета
var (
	employeeEmailAliases      = []string{"employeeEmail", "employee_email", "email", "Email"}
	deviceSerialNumberAliases = []string{"deviceSerialNumber", "device_serial_number", "serialNumber", "serial_number", "SerialNumber"}
	assignedDateAliases       = []string{"assignedDate", "assigned_date", "zimmetTarihi", "zimmet_tarihi", "date"}
	returnDateAliases         = []string{"returnDate", "return_date", "iadeTarihi", "iade_tarihi"}
	statusAliases             = []string{"status", "durum"}
	notesAliases              = []string{"notes", "notlar"}
)

// Столбцы общей таблицы инвентаря
var (
	nameAliases       = []string{"İsim", "Isim", "Ad Soyad", "Ad_Soyad", "name", "Name"}
	departmentAliases = []string{"Departman", "department", "Department"}
)

// vacantName в столбце имени означает свободное место без сотрудника
const vacantName = "Vacant"

// slotSpec описывает группу столбцов одного устройства в строке инвентаря
type slotSpec struct {
	kind       string
	brandModel []string
	serial     []string
	imei       []string
	hostname   []string
	uuid       []string
}

var inventorySlots = []slotSpec{
	{
		kind:       "Bilgisayar",
		brandModel: []string{"Bilgisayar Marka/Model"},
		serial:     []string{"Bilgisayar Seri No"},
		hostname:   []string{"Hostname"},
		uuid:       []string{"Bilgisayar UUID"},
	},
	{
		kind:       "Telefon",
		brandModel: []string{"Telefon Marka/Model"},
		serial:     []string{"Telefon Seri no"},
		imei:       []string{"Telefon IMEI"},
	},
	{
		kind:       "Tablet",
		brandModel: []string{"Tablet Marka/Model"},
		serial:     []string{"Tablet Seri no"},
	},
}

// AssignmentRow - нормализованная строка импорта зиммета
type AssignmentRow struct {
	Line               int
	EmployeeEmail      string
	DeviceSerialNumber string
	AssignedDate       time.Time
	ReturnDate         *time.Time
	Status             domain.AssignmentStatus
	Notes              *string
}

// assignmentFields - обязательные поля строки до разбора типов
type assignmentFields struct {
	EmployeeEmail      string `json:"employeeEmail" validate:"required"`
	DeviceSerialNumber string `json:"deviceSerialNumber" validate:"required"`
	AssignedDate       string `json:"assignedDate" validate:"required"`
}

// RowError - отклонённая строка и причины
type RowError struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// DeviceSlot - одно устройство из строки инвентаря
type DeviceSlot struct {
	Kind         string
	Brand        string
	Model        string
	HasBrand     bool
	SerialNumber *string
	IMEI         *string
	Hostname     *string
	UUID         *string
}

// Identifiers возвращает ключи поиска устройства
func (s DeviceSlot) Identifiers() repository.DeviceIdentifiers {
	return repository.DeviceIdentifiers{SerialNumber: s.SerialNumber, IMEI: s.IMEI, UUID: s.UUID}
}

// Label - краткое описание устройства для сообщений об ошибках
func (s DeviceSlot) Label() string {
	switch {
	case s.SerialNumber != nil:
		return fmt.Sprintf("%s %s", s.Kind, *s.SerialNumber)
	case s.IMEI != nil:
		return fmt.Sprintf("%s IMEI %s", s.Kind, *s.IMEI)
	case s.HasBrand:
		return fmt.Sprintf("%s %s %s", s.Kind, s.Brand, s.Model)
	default:
		return s.Kind
	}
}

// InventoryRow - нормализованная строка общей таблицы
type InventoryRow struct {
	Line       int
	Name       string
	Department string
	Slots      []DeviceSlot
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describeValidation превращает ошибки validator в короткие сообщения
func describeValidation(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
		}
	}
	return msgs
}

// parseAssignmentRow собирает каноническую строку. missing - незаполненные
// обязательные поля, problems - значения, которые не удалось разобрать.
func parseAssignmentRow(v *validator.Validate, line int, rec dto.RawRecord) (row *AssignmentRow, missing, problems []string) {
	text := func(aliases []string) string {
		value, err := lookup(rec, aliases)
		if err != nil {
			problems = append(problems, err.Error())
		}
		return value
	}

	fields := assignmentFields{
		EmployeeEmail:      text(employeeEmailAliases),
		DeviceSerialNumber: text(deviceSerialNumberAliases),
		AssignedDate:       text(assignedDateAliases),
	}
	rawReturn := text(returnDateAliases)
	rawStatus := text(statusAliases)
	rawNotes := text(notesAliases)

	if err := v.Struct(&fields); err != nil {
		missing = describeValidation(err)
	}

	row = &AssignmentRow{
		Line:               line,
		EmployeeEmail:      fields.EmployeeEmail,
		DeviceSerialNumber: fields.DeviceSerialNumber,
		Notes:              optional(rawNotes),
	}

	if fields.AssignedDate != "" {
		assigned, err := parseDate(fields.AssignedDate)
		if err != nil {
			problems = append(problems, "assignedDate: "+err.Error())
		}
		row.AssignedDate = assigned
	}

	if !absent(rawReturn) {
		returned, err := parseDate(rawReturn)
		if err != nil {
			problems = append(problems, "returnDate: "+err.Error())
		} else {
			row.ReturnDate = &returned
		}
	}

	status, err := parseAssignmentStatus(rawStatus)
	if err != nil {
		problems = append(problems, "status: "+err.Error())
	}
	row.Status = status

	return row, missing, problems
}

// parseInventoryRow разбирает строку инвентаря. skip=true для пустых и "Vacant" строк.
func parseInventoryRow(line int, rec dto.RawRecord) (row *InventoryRow, skip bool, err error) {
	name, err := lookup(rec, nameAliases)
	if err != nil {
		return nil, false, err
	}
	if absent(name) || strings.EqualFold(name, vacantName) {
		return nil, true, nil
	}

	department, err := lookup(rec, departmentAliases)
	if err != nil {
		return nil, false, err
	}

	row = &InventoryRow{Line: line, Name: name}
	if !absent(department) {
		row.Department = department
	}

	for _, def := range inventorySlots {
		slot, present, err := parseSlot(rec, def)
		if err != nil {
			return nil, false, err
		}
		if present {
			row.Slots = append(row.Slots, slot)
		}
	}
	return row, false, nil
}

// parseSlot читает группу столбцов устройства. Группа присутствует,
// если хотя бы одно поле содержит значение, отличное от заглушки.
func parseSlot(rec dto.RawRecord, def slotSpec) (DeviceSlot, bool, error) {
	values := make(map[string]string, 5)
	groups := map[string][]string{
		"brandModel": def.brandModel,
		"serial":     def.serial,
		"imei":       def.imei,
		"hostname":   def.hostname,
		"uuid":       def.uuid,
	}
	present := false
	for field, aliases := range groups {
		if len(aliases) == 0 {
			continue
		}
		v, err := lookup(rec, aliases)
		if err != nil {
			return DeviceSlot{}, false, err
		}
		values[field] = v
		if !absent(v) {
			present = true
		}
	}
	if !present {
		return DeviceSlot{}, false, nil
	}

	slot := DeviceSlot{
		Kind:         def.kind,
		SerialNumber: optional(values["serial"]),
		IMEI:         optional(values["imei"]),
		Hostname:     optional(values["hostname"]),
		UUID:         optional(values["uuid"]),
	}
	slot.Brand, slot.Model = splitBrandModel("")
	if !absent(values["brandModel"]) {
		slot.Brand, slot.Model = splitBrandModel(values["brandModel"])
		slot.HasBrand = true
	}
	return slot, true, nil
}
