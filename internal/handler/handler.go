package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/middleware"
	"github.com/zimmet-api/internal/spreadsheet"
)

// uploadField - имя поля multipart с файлом таблицы
const uploadField = "file"

var errNotXLSX = errors.New("only .xlsx files are accepted")

// base - общие для всех обработчиков ответы и разбор запросов
type base struct {
	validator    *validator.Validate
	logger       *slog.Logger
	maxBodyBytes int64
}

func newBase(logger *slog.Logger, maxBodyBytes int64) base {
	return base{
		validator:    validator.New(),
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// decode читает JSON тела. Для импорта числа сохраняются как json.Number,
// чтобы длинные IMEI и серийные номера не теряли точность.
func (b *base) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if b.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, b.maxBodyBytes)
	}

	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			b.respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err.Error())
			return false
		}
		b.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// decodeValid читает JSON и проверяет теги validate
func (b *base) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if !b.decode(w, r, v) {
		return false
	}
	if err := b.validator.Struct(v); err != nil {
		b.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}

// readUpload декодирует загруженный файл .xlsx в строки
func (b *base) readUpload(w http.ResponseWriter, r *http.Request) ([]dto.RawRecord, bool) {
	if b.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, b.maxBodyBytes)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		b.respondError(w, http.StatusBadRequest, "file upload failed", err.Error())
		return nil, false
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		b.respondError(w, http.StatusBadRequest, errNotXLSX.Error(), header.Filename)
		return nil, false
	}

	records, err := spreadsheet.Decode(file)
	if err != nil {
		b.respondError(w, http.StatusBadRequest, "spreadsheet could not be read", err.Error())
		return nil, false
	}
	return records, true
}

// writeSheet отдаёт лист как вложение .xlsx
func (b *base) writeSheet(w http.ResponseWriter, r *http.Request, sheet spreadsheet.Sheet, prefix string) {
	var buf bytes.Buffer
	if err := spreadsheet.Encode(&buf, sheet); err != nil {
		b.handleServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format(time.DateOnly))
	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		b.logger.Error("failed to write spreadsheet", slog.Any("error", err))
	}
}

// extractID берёт числовой идентификатор из сегмента пути после prefix
func extractID(r *http.Request, prefix string) (int64, error) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	segment, _, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", segment)
	}
	return id, nil
}

func (b *base) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		b.respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "validation error", Message: verr.Message, Details: verr.Details})
	case errors.Is(err, domain.ErrEmployeeNotFound):
		b.respondError(w, http.StatusNotFound, "employee not found", "")
	case errors.Is(err, domain.ErrDeviceNotFound):
		b.respondError(w, http.StatusNotFound, "device not found", "")
	case errors.Is(err, domain.ErrAssignmentNotFound):
		b.respondError(w, http.StatusNotFound, "assignment not found", "")
	case errors.Is(err, domain.ErrDeviceNotAvailable):
		b.respondError(w, http.StatusBadRequest, "device is not available", err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		b.respondError(w, http.StatusConflict, "email address is already in use", "")
	case errors.Is(err, domain.ErrDuplicateSerialNumber):
		b.respondError(w, http.StatusConflict, "serial number is already in use", "")
	case errors.Is(err, domain.ErrAssignmentNotActive):
		b.respondError(w, http.StatusConflict, "assignment is not active", "")
	case errors.Is(err, domain.ErrInvalidTransition):
		b.respondError(w, http.StatusConflict, "assignment status change is not allowed", err.Error())
	case errors.Is(err, domain.ErrAssignedStatusReserved):
		b.respondError(w, http.StatusConflict, "device status ASSIGNED is managed by assignments", "")
	case errors.Is(err, domain.ErrInvalidStatus):
		b.respondError(w, http.StatusBadRequest, "invalid status", err.Error())
	default:
		b.logger.Error("internal error",
			slog.Any("error", err),
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
			slog.String("path", r.URL.Path),
		)
		b.respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func (b *base) respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (b *base) respondError(w http.ResponseWriter, status int, errMsg, details string) {
	w.WriteHeader(status)
	resp := dto.ErrorResponse{Error: errMsg}
	if details != "" {
		resp.Message = details
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		b.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}

// batchStatus выбирает код ответа пакетной операции
func batchStatus(succeeded, failed, okStatus int) int {
	switch {
	case failed == 0:
		return okStatus
	case succeeded == 0:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusMultiStatus
	}
}
