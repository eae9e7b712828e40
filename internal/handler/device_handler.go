package handler

import (
	"log/slog"
	"net/http"

	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/service"
)

type DeviceHandler struct {
	base
	deviceService service.DeviceService
	exportService service.ExportService
}

func NewDeviceHandler(
	deviceService service.DeviceService,
	exportService service.ExportService,
	logger *slog.Logger,
	maxBodyBytes int64,
) *DeviceHandler {
	return &DeviceHandler{
		base:          newBase(logger, maxBodyBytes),
		deviceService: deviceService,
		exportService: exportService,
	}
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.deviceService.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.DeviceRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	device, err := h.deviceService.Create(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, device)
}

func (h *DeviceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/devices")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid device id", err.Error())
		return
	}

	device, err := h.deviceService.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := extractID(r, "/devices")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid device id", err.Error())
		return
	}

	var req dto.DeviceRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	device, err := h.deviceService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, device)
}

func (h *DeviceHandler) Export(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.exportService.Devices(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeSheet(w, r, sheet, "cihazlar")
}
