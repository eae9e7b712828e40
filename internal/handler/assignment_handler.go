package handler

import (
	"log/slog"
	"net/http"

	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/service"
)

type AssignmentHandler struct {
	base
	assignmentService service.AssignmentService
	importService     service.ImportService
	exportService     service.ExportService
}

func NewAssignmentHandler(
	assignmentService service.AssignmentService,
	importService service.ImportService,
	exportService service.ExportService,
	logger *slog.Logger,
	maxBodyBytes int64,
) *AssignmentHandler {
	return &AssignmentHandler{
		base:              newBase(logger, maxBodyBytes),
		assignmentService: assignmentService,
		importService:     importService,
		exportService:     exportService,
	}
}

func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.assignmentService.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, assignments)
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAssignmentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	a, err := h.assignmentService.Create(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, a)
}

func (h *AssignmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/assignments")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid assignment id", err.Error())
		return
	}

	a, err := h.assignmentService.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/assignments")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid assignment id", err.Error())
		return
	}

	var req dto.UpdateAssignmentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	a, err := h.assignmentService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/assignments")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid assignment id", err.Error())
		return
	}

	var req dto.ReturnAssignmentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	a, err := h.assignmentService.Return(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportAssignmentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.runImport(w, r, req.Assignments)
}

func (h *AssignmentHandler) ImportXLSX(w http.ResponseWriter, r *http.Request) {
	records, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	h.runImport(w, r, records)
}

func (h *AssignmentHandler) runImport(w http.ResponseWriter, r *http.Request, records []dto.RawRecord) {
	result, err := h.importService.ImportAssignments(r.Context(), records)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := batchStatus(result.Success, result.Failed, http.StatusCreated)
	message := "assignments imported"
	switch status {
	case http.StatusMultiStatus:
		message = "assignments partially imported"
	case http.StatusUnprocessableEntity:
		message = "no assignment could be imported"
	}
	h.respondJSON(w, status, dto.ImportResponse{Message: message, Results: result})
}

func (h *AssignmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.exportService.Assignments(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeSheet(w, r, sheet, "zimmetler")
}
