package handler

import (
	"log/slog"
	"net/http"

	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/service"
)

// InventoryHandler обслуживает общую таблицу инвентаря и отчёты
type InventoryHandler struct {
	base
	importService service.ImportService
	exportService service.ExportService
	reportService service.ReportService
}

func NewInventoryHandler(
	importService service.ImportService,
	exportService service.ExportService,
	reportService service.ReportService,
	logger *slog.Logger,
	maxBodyBytes int64,
) *InventoryHandler {
	return &InventoryHandler{
		base:          newBase(logger, maxBodyBytes),
		importService: importService,
		exportService: exportService,
		reportService: reportService,
	}
}

func (h *InventoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportAllRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.runImport(w, r, req.Rows)
}

func (h *InventoryHandler) ImportXLSX(w http.ResponseWriter, r *http.Request) {
	records, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	h.runImport(w, r, records)
}

func (h *InventoryHandler) runImport(w http.ResponseWriter, r *http.Request, records []dto.RawRecord) {
	result, err := h.importService.ImportAll(r.Context(), records)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	status := batchStatus(result.Succeeded(), result.Failed(), http.StatusOK)
	message := "inventory imported"
	switch status {
	case http.StatusMultiStatus:
		message = "inventory partially imported"
	case http.StatusUnprocessableEntity:
		message = "no inventory row could be imported"
	}
	h.respondJSON(w, status, dto.ImportResponse{Message: message, Results: result})
}

func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.exportService.Inventory(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeSheet(w, r, sheet, "envanter")
}

func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reportService.Summary(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, summary)
}
