package service

import (
	"context"
	"strings"
	"time"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/repository"
	"github.com/zimmet-api/internal/spreadsheet"
)

// trDate - формат даты tr-TR
const trDate = "02.01.2006"

// ExportService готовит листы выгрузки
type ExportService interface {
	Employees(ctx context.Context) (spreadsheet.Sheet, error)
	Devices(ctx context.Context) (spreadsheet.Sheet, error)
	Assignments(ctx context.Context) (spreadsheet.Sheet, error)
	Inventory(ctx context.Context) (spreadsheet.Sheet, error)
}

type exportService struct {
	employees   repository.EmployeeRepository
	devices     repository.DeviceRepository
	assignments repository.AssignmentRepository
}

// NewExportService создаёт новый экземпляр сервиса
func NewExportService(
	employees repository.EmployeeRepository,
	devices repository.DeviceRepository,
	assignments repository.AssignmentRepository,
) ExportService {
	return &exportService{employees: employees, devices: devices, assignments: assignments}
}

var (
	employeeColumns = []spreadsheet.Column{
		{Header: "ID", Width: 5},
		{Header: "Ad_Soyad", Width: 25},
		{Header: "Email", Width: 30},
		{Header: "Departman", Width: 20},
		{Header: "Kayıt_Tarihi", Width: 15},
		{Header: "Son_Güncelleme", Width: 15},
	}
	deviceColumns = []spreadsheet.Column{
		{Header: "ID", Width: 5},
		{Header: "Tip", Width: 15},
		{Header: "Marka", Width: 15},
		{Header: "Model", Width: 20},
		{Header: "Seri_No", Width: 20},
		{Header: "Satın_Alma_Tarihi", Width: 15},
		{Header: "Durum", Width: 10},
		{Header: "Kayıt_Tarihi", Width: 15},
		{Header: "Son_Güncelleme", Width: 15},
	}
	assignmentColumns = []spreadsheet.Column{
		{Header: "Zimmet_ID", Width: 10},
		{Header: "Çalışan_Adı", Width: 25},
		{Header: "Departman", Width: 20},
		{Header: "Cihaz_Tipi", Width: 15},
		{Header: "Cihaz", Width: 25},
		{Header: "Seri_No", Width: 20},
		{Header: "Zimmet_Tarihi", Width: 15},
		{Header: "İade_Tarihi", Width: 15},
		{Header: "Durum", Width: 15},
		{Header: "Notlar", Width: 30},
	}
	inventoryColumns = []spreadsheet.Column{
		{Header: "İsim", Width: 25},
		{Header: "Bilgisayar Marka/Model", Width: 25},
		{Header: "Bilgisayar Seri No", Width: 20},
		{Header: "Teslim Edilen Tarih", Width: 15},
		{Header: "Telefon Marka/Model", Width: 25},
		{Header: "Telefon Seri no", Width: 20},
		{Header: "Telefon IMEI", Width: 20},
		{Header: "Teslim Edilen Tarih_2", Width: 15},
		{Header: "Tablet Marka/Model", Width: 25},
		{Header: "Tablet Seri no", Width: 20},
		{Header: "Teslim Edilen Tarih_3", Width: 15},
	}
)

func (s *exportService) Employees(ctx context.Context) (spreadsheet.Sheet, error) {
	employees, err := s.employees.List(ctx)
	if err != nil {
		return spreadsheet.Sheet{}, err
	}

	rows := make([][]any, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, []any{e.ID, e.Name, e.Email, e.Department, formatDate(e.CreatedAt), formatDate(e.UpdatedAt)})
	}
	return spreadsheet.Sheet{Name: "Çalışanlar", Columns: employeeColumns, Rows: rows}, nil
}

func (s *exportService) Devices(ctx context.Context) (spreadsheet.Sheet, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return spreadsheet.Sheet{}, err
	}

	rows := make([][]any, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []any{
			d.ID, d.Type, d.Brand, d.Model, deref(d.SerialNumber),
			formatDate(d.PurchaseDate), string(d.Status),
			formatDate(d.CreatedAt), formatDate(d.UpdatedAt),
		})
	}
	return spreadsheet.Sheet{Name: "Cihazlar", Columns: deviceColumns, Rows: rows}, nil
}

func (s *exportService) Assignments(ctx context.Context) (spreadsheet.Sheet, error) {
	assignments, err := s.assignments.List(ctx, repository.AssignmentFilter{})
	if err != nil {
		return spreadsheet.Sheet{}, err
	}

	rows := make([][]any, 0, len(assignments))
	for _, a := range assignments {
		var name, department, deviceType, device, serial string
		if a.Employee != nil {
			name, department = a.Employee.Name, a.Employee.Department
		}
		if a.Device != nil {
			deviceType = a.Device.Type
			device = deviceLabel(a.Device)
			serial = deref(a.Device.SerialNumber)
		}
		returned := ""
		if a.ReturnDate != nil {
			returned = formatDate(*a.ReturnDate)
		}
		rows = append(rows, []any{
			a.ID, name, department, deviceType, device, serial,
			formatDate(a.AssignedDate), returned, string(a.Status), deref(a.Notes),
		})
	}
	return spreadsheet.Sheet{Name: "Zimmetler", Columns: assignmentColumns, Rows: rows}, nil
}

// Inventory строит лист "сотрудник - его устройства" по активному зиммету.
// На каждый вид устройства выводится первое найденное.
func (s *exportService) Inventory(ctx context.Context) (spreadsheet.Sheet, error) {
	employees, err := s.employees.List(ctx)
	if err != nil {
		return spreadsheet.Sheet{}, err
	}

	rows := make([][]any, 0, len(employees))
	for _, e := range employees {
		row := make([]any, len(inventoryColumns))
		for i := range row {
			row[i] = ""
		}
		row[0] = e.Name

		filled := map[int]bool{}
		for _, a := range e.Assignments {
			if a.Device == nil {
				continue
			}
			offset := inventoryOffset(a.Device.Type)
			if offset < 0 || filled[offset] {
				continue
			}
			filled[offset] = true

			d := a.Device
			switch offset {
			case 1:
				row[1], row[2], row[3] = deviceLabel(d), deref(d.SerialNumber), formatDate(a.AssignedDate)
			case 4:
				row[4], row[5], row[6], row[7] = deviceLabel(d), deref(d.SerialNumber), deref(d.IMEI), formatDate(a.AssignedDate)
			case 8:
				row[8], row[9], row[10] = deviceLabel(d), deref(d.SerialNumber), formatDate(a.AssignedDate)
			}
		}
		rows = append(rows, row)
	}
	return spreadsheet.Sheet{Name: "Envanter", Columns: inventoryColumns, Rows: rows}, nil
}

// inventoryOffset - первый столбец группы устройства или -1
func inventoryOffset(deviceType string) int {
	t := fold(deviceType)
	switch {
	case strings.Contains(t, "bilgisayar"), strings.Contains(t, "laptop"):
		return 1
	case strings.Contains(t, "telefon"):
		return 4
	case strings.Contains(t, "tablet"):
		return 8
	default:
		return -1
	}
}

func deviceLabel(d *domain.Device) string {
	if d.Model == "" || d.Model == d.Brand {
		return d.Brand
	}
	return d.Brand + " " + d.Model
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(trDate)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
