package handler

import (
	"log/slog"
	"net/http"

	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/service"
)

type EmployeeHandler struct {
	base
	empService    service.EmployeeService
	exportService service.ExportService
}

func NewEmployeeHandler(
	empService service.EmployeeService,
	exportService service.ExportService,
	logger *slog.Logger,
	maxBodyBytes int64,
) *EmployeeHandler {
	return &EmployeeHandler{
		base:          newBase(logger, maxBodyBytes),
		empService:    empService,
		exportService: exportService,
	}
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.empService.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.EmployeeRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	emp, err := h.empService.Create(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, emp)
}

func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/employees")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid employee id", err.Error())
		return
	}

	emp, err := h.empService.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, emp)
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/employees")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid employee id", err.Error())
		return
	}

	var req dto.EmployeeRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	emp, err := h.empService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, emp)
}

func (h *EmployeeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportEmployeesRequest
	if !h.decode(w, r, &req) {
		return
	}

	count, err := h.empService.Import(r.Context(), req.Employees)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, dto.ImportEmployeesResponse{
		Message: "employees imported",
		Count:   count,
	})
}

func (h *EmployeeHandler) Export(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.exportService.Employees(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeSheet(w, r, sheet, "calisanlar")
}
