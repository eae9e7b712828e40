package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/zimmet-api/internal/database/dbtest"
	"github.com/zimmet-api/internal/domain"
	"github.com/zimmet-api/internal/dto"
	"github.com/zimmet-api/internal/handler"
	"github.com/zimmet-api/internal/middleware"
	"github.com/zimmet-api/internal/repository"
	"github.com/zimmet-api/internal/service"
	"github.com/zimmet-api/internal/spreadsheet"
)

type testServer struct {
	server *httptest.Server
	repos  repository.RepositoryFactory
}

func setupTestServer(t *testing.T) *testServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db := dbtest.Open(t)
	repos := repository.NewRepositoryFactory(db)
	tm := repository.NewTransactionManager(db)
	reconciler := service.NewReconciler()

	exportService := service.NewExportService(repos.Employees(), repos.Devices(), repos.Assignments())
	importService := service.NewImportService(tm, reconciler, service.NewIdentityResolver("sirket.com"), service.ImportOptions{MaxRows: 100}, logger)
	reportService := service.NewReportService(repos.Employees(), repos.Devices(), repos.Assignments())

	const maxBody = 1 << 20
	router := handler.NewRouter(
		handler.NewEmployeeHandler(service.NewEmployeeService(repos.Employees(), tm, logger), exportService, logger, maxBody),
		handler.NewDeviceHandler(service.NewDeviceService(repos.Devices()), exportService, logger, maxBody),
		handler.NewAssignmentHandler(service.NewAssignmentService(repos.Assignments(), tm, reconciler, logger), importService, exportService, logger, maxBody),
		handler.NewInventoryHandler(importService, exportService, reportService, logger, maxBody),
		logger,
	)

	return &testServer{
		server: httptest.NewServer(router.Setup()),
		repos:  repos,
	}
}

func (ts *testServer) Close() {
	ts.server.Close()
}

func postJSON(url string, body any) (*http.Response, error) {
	data, _ := json.Marshal(body)
	return http.Post(url, "application/json", bytes.NewBuffer(data))
}

func putJSON(url string, body any) (*http.Response, error) {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func mustPost(t *testing.T, url string, body any) {
	resp, err := postJSON(url, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.Fatalf("POST %s: unexpected status %d", url, resp.StatusCode)
	}
}

func expectStatus(t *testing.T, resp *http.Response, err error, want int) {
	t.Helper()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != want {
		t.Errorf("expected %d, got %d", want, resp.StatusCode)
	}
}

func seedEmployeeAndDevice(t *testing.T, ts *testServer) {
	mustPost(t, ts.server.URL+"/employees/", map[string]any{"name": "Ayşe Yılmaz", "email": "ayse@sirket.com", "department": "IT"})
	mustPost(t, ts.server.URL+"/devices/", map[string]any{"type": "Telefon", "brand": "Apple", "model": "iPhone 13", "serialNumber": "SN-1"})
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.server.URL + "/health")
	expectStatus(t, resp, err, http.StatusOK)
	defer resp.Body.Close()

	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestCreateEmployee_Success(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := postJSON(ts.server.URL+"/employees/", map[string]any{"name": "Ayşe Yılmaz", "email": "ayse@sirket.com", "department": "IT"})
	expectStatus(t, resp, err, http.StatusCreated)
	defer resp.Body.Close()

	var result domain.Employee
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Name != "Ayşe Yılmaz" {
		t.Errorf("expected name 'Ayşe Yılmaz', got '%s'", result.Name)
	}
	if result.ID == 0 {
		t.Error("expected id to be set")
	}
}

func TestCreateEmployee_InvalidEmail(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := postJSON(ts.server.URL+"/employees/", map[string]any{"name": "Ayşe", "email": "not-an-email", "department": "IT"})
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()
}

func TestCreateEmployee_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	mustPost(t, ts.server.URL+"/employees/", map[string]any{"name": "Ayşe", "email": "ayse@sirket.com", "department": "IT"})

	resp, err := postJSON(ts.server.URL+"/employees/", map[string]any{"name": "Başka", "email": "ayse@sirket.com", "department": "HR"})
	expectStatus(t, resp, err, http.StatusConflict)
	resp.Body.Close()
}

func TestGetEmployee(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.server.URL + "/employees/999")
	expectStatus(t, resp, err, http.StatusNotFound)
	resp.Body.Close()

	resp, err = http.Get(ts.server.URL + "/employees/abc")
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()
}

func TestUpdateEmployee(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	mustPost(t, ts.server.URL+"/employees/", map[string]any{"name": "Ayşe", "email": "ayse@sirket.com", "department": "IT"})

	resp, err := putJSON(ts.server.URL+"/employees/1", map[string]any{"name": "Ayşe Kaya", "email": "ayse@sirket.com", "department": "Finans"})
	expectStatus(t, resp, err, http.StatusOK)
	defer resp.Body.Close()

	var result domain.Employee
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Department != "Finans" {
		t.Errorf("expected department 'Finans', got '%s'", result.Department)
	}
}

func TestImportEmployees(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := postJSON(ts.server.URL+"/employees/import", map[string]any{"employees": []map[string]any{}})
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()

	resp, err = postJSON(ts.server.URL+"/employees/import", map[string]any{"employees": []map[string]any{
		{"name": "Ayşe", "email": "ayse@sirket.com", "department": "IT"},
		{"name": "Can", "email": "can@sirket.com", "department": "HR"},
	}})
	expectStatus(t, resp, err, http.StatusCreated)
	defer resp.Body.Close()

	var result dto.ImportEmployeesResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 2 {
		t.Errorf("expected count 2, got %d", result.Count)
	}
}

func TestCreateDevice_AssignedStatusRejected(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := postJSON(ts.server.URL+"/devices/", map[string]any{"type": "Tablet", "brand": "Samsung", "model": "Tab", "status": "ASSIGNED"})
	expectStatus(t, resp, err, http.StatusConflict)
	resp.Body.Close()

	resp, err = postJSON(ts.server.URL+"/devices/", map[string]any{"type": "Tablet", "brand": "Samsung", "model": "Tab", "status": "BROKEN"})
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()
}

func TestAssignmentLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()
	seedEmployeeAndDevice(t, ts)

	resp, err := postJSON(ts.server.URL+"/assignments/", map[string]any{"employeeId": 1, "deviceId": 1, "notes": "yeni telefon"})
	expectStatus(t, resp, err, http.StatusCreated)
	var created domain.Assignment
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.Status != domain.AssignmentActive {
		t.Errorf("expected ACTIVE, got %s", created.Status)
	}

	resp, err = postJSON(ts.server.URL+"/assignments/", map[string]any{"employeeId": 1, "deviceId": 1})
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()

	returnURL := fmt.Sprintf("%s/assignments/%d/return", ts.server.URL, created.ID)
	resp, err = postJSON(returnURL, map[string]any{"deviceCondition": "DAMAGED"})
	expectStatus(t, resp, err, http.StatusOK)
	resp.Body.Close()

	resp, err = postJSON(returnURL, map[string]any{"deviceCondition": "GOOD"})
	expectStatus(t, resp, err, http.StatusConflict)
	resp.Body.Close()

	resp, err = http.Get(ts.server.URL + "/devices/1")
	expectStatus(t, resp, err, http.StatusOK)
	var device domain.Device
	json.NewDecoder(resp.Body).Decode(&device)
	resp.Body.Close()
	if device.Status != domain.DeviceRepair {
		t.Errorf("expected device status REPAIR, got %s", device.Status)
	}
	if len(device.Assignments) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(device.Assignments))
	}

	resp, err = putJSON(fmt.Sprintf("%s/assignments/%d", ts.server.URL, created.ID), map[string]any{"status": "ACTIVE"})
	expectStatus(t, resp, err, http.StatusConflict)
	resp.Body.Close()
}

func TestCollectionPathsWithoutTrailingSlash(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	post := func(path string, body any) *http.Response {
		data, _ := json.Marshal(body)
		resp, err := client.Post(ts.server.URL+path, "application/json", bytes.NewBuffer(data))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		return resp
	}

	resp := post("/employees", map[string]any{"name": "Ayşe", "email": "ayse@sirket.com", "department": "IT"})
	expectStatus(t, resp, nil, http.StatusCreated)
	resp.Body.Close()

	resp = post("/devices", map[string]any{"type": "Telefon", "brand": "Apple", "model": "iPhone 13", "serialNumber": "SN-1"})
	expectStatus(t, resp, nil, http.StatusCreated)
	resp.Body.Close()

	resp = post("/assignments", map[string]any{"employeeId": 1, "deviceId": 1})
	expectStatus(t, resp, nil, http.StatusCreated)
	resp.Body.Close()

	resp, err := client.Get(ts.server.URL + "/assignments")
	expectStatus(t, resp, err, http.StatusOK)
	defer resp.Body.Close()

	var active []domain.Assignment
	json.NewDecoder(resp.Body).Decode(&active)
	if len(active) != 1 {
		t.Errorf("expected 1 active assignment, got %d", len(active))
	}
}

func TestReturnAssignment_InvalidCondition(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := postJSON(ts.server.URL+"/assignments/1/return", map[string]any{"deviceCondition": "LOST"})
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()

	resp, err = postJSON(ts.server.URL+"/assignments/1/return", map[string]any{"deviceCondition": "GOOD"})
	expectStatus(t, resp, err, http.StatusNotFound)
	resp.Body.Close()
}

func TestImportAssignments_Statuses(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()
	seedEmployeeAndDevice(t, ts)
	mustPost(t, ts.server.URL+"/devices/", map[string]any{"type": "Telefon", "brand": "Apple", "model": "iPhone 14", "serialNumber": "SN-2"})

	url := ts.server.URL + "/assignments/import"

	resp, err := postJSON(url, map[string]any{"assignments": []map[string]any{
		{"employeeEmail": "ayse@sirket.com", "deviceSerialNumber": "SN-1", "assignedDate": "2024-01-15"},
		{"employeeEmail": "ghost@sirket.com", "deviceSerialNumber": "SN-2", "assignedDate": "2024-01-15"},
	}})
	expectStatus(t, resp, err, http.StatusMultiStatus)
	var partial struct {
		Results dto.AssignmentImportResult `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&partial)
	resp.Body.Close()
	if partial.Results.Success != 1 || partial.Results.Failed != 1 {
		t.Errorf("expected 1/1, got %d/%d", partial.Results.Success, partial.Results.Failed)
	}

	resp, err = postJSON(url, map[string]any{"assignments": []map[string]any{
		{"employeeEmail": "ghost@sirket.com", "deviceSerialNumber": "SN-2", "assignedDate": "2024-01-15"},
	}})
	expectStatus(t, resp, err, http.StatusUnprocessableEntity)
	resp.Body.Close()

	resp, err = postJSON(url, map[string]any{"assignments": []map[string]any{
		{"email": "ayse@sirket.com", "serial_number": "SN-2", "zimmet_tarihi": "16.01.2024"},
	}})
	expectStatus(t, resp, err, http.StatusCreated)
	resp.Body.Close()

	resp, err = postJSON(url, map[string]any{"assignments": []map[string]any{
		{"employeeEmail": "ayse@sirket.com"},
	}})
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()
}

func TestImportAll_AndExport(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := postJSON(ts.server.URL+"/import/all", map[string]any{"rows": []map[string]any{
		{"İsim": "Ayşe Yılmaz", "Departman": "Finans", "Telefon Marka/Model": "Apple iPhone 13", "Telefon IMEI": 356938035643809},
		{"İsim": "Vacant", "Tablet Seri no": "TB-9"},
	}})
	expectStatus(t, resp, err, http.StatusOK)
	var imported struct {
		Results dto.ImportAllResult `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&imported)
	resp.Body.Close()
	if imported.Results.Devices.Created != 1 || imported.Results.Assignments.Created != 1 {
		t.Errorf("unexpected counters: %+v", imported.Results)
	}

	resp, err = http.Get(ts.server.URL + "/export/all")
	expectStatus(t, resp, err, http.StatusOK)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != spreadsheet.ContentType {
		t.Errorf("expected xlsx content type, got %s", ct)
	}

	records, err := spreadsheet.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 row, got %d", len(records))
	}
	if records[0]["Telefon IMEI"] != "356938035643809" {
		t.Errorf("expected IMEI to survive round trip, got %v", records[0]["Telefon IMEI"])
	}
}

func TestImportAllXLSX(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	var sheet bytes.Buffer
	err := spreadsheet.Encode(&sheet, spreadsheet.Sheet{
		Name:    "Envanter",
		Columns: []spreadsheet.Column{{Header: "İsim", Width: 20}, {Header: "Tablet Seri no", Width: 20}},
		Rows:    [][]any{{"Can Öz", "TB-1"}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "envanter.xlsx")
	part.Write(sheet.Bytes())
	mw.Close()

	resp, err := http.Post(ts.server.URL+"/import/all/xlsx", mw.FormDataContentType(), &body)
	expectStatus(t, resp, err, http.StatusOK)
	resp.Body.Close()

	if _, err := ts.repos.Devices().GetBySerialNumber(context.Background(), "TB-1"); err != nil {
		t.Errorf("expected tablet to be created: %v", err)
	}

	var wrong bytes.Buffer
	mw = multipart.NewWriter(&wrong)
	part, _ = mw.CreateFormFile("file", "envanter.csv")
	part.Write([]byte("İsim\nCan"))
	mw.Close()

	resp, err = http.Post(ts.server.URL+"/import/all/xlsx", mw.FormDataContentType(), &wrong)
	expectStatus(t, resp, err, http.StatusBadRequest)
	resp.Body.Close()
}

func TestImportAssignmentsXLSX_ReportsSheetRowNumbers(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()
	seedEmployeeAndDevice(t, ts)

	var sheet bytes.Buffer
	err := spreadsheet.Encode(&sheet, spreadsheet.Sheet{
		Name: "Zimmet",
		Columns: []spreadsheet.Column{
			{Header: "employeeEmail", Width: 25}, {Header: "deviceSerialNumber", Width: 20}, {Header: "assignedDate", Width: 15},
		},
		Rows: [][]any{
			{"ayse@sirket.com", "SN-1", "2024-01-15"},
			{"", "", ""},
			{"ghost@sirket.com", "SN-1", "2024-01-15"},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "zimmet.xlsx")
	part.Write(sheet.Bytes())
	mw.Close()

	resp, err := http.Post(ts.server.URL+"/assignments/import/xlsx", mw.FormDataContentType(), &body)
	expectStatus(t, resp, err, http.StatusMultiStatus)
	defer resp.Body.Close()

	var result struct {
		Results dto.AssignmentImportResult `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Results.Errors) != 1 || !strings.Contains(result.Results.Errors[0], "row 4") {
		t.Errorf("expected error for sheet row 4, got %v", result.Results.Errors)
	}
}

func TestExportEmployees(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()
	seedEmployeeAndDevice(t, ts)

	resp, err := http.Get(ts.server.URL + "/employees/export")
	expectStatus(t, resp, err, http.StatusOK)
	defer resp.Body.Close()

	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "calisanlar_") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

func TestReportsSummary(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()
	seedEmployeeAndDevice(t, ts)

	resp, err := http.Get(ts.server.URL + "/reports/summary")
	expectStatus(t, resp, err, http.StatusOK)
	defer resp.Body.Close()

	var summary dto.ReportSummary
	json.NewDecoder(resp.Body).Decode(&summary)
	if summary.EmployeeCount != 1 {
		t.Errorf("expected 1 employee, got %d", summary.EmployeeCount)
	}
}

func TestRouting(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.server.URL+"/employees/1", nil)
	resp, err := http.DefaultClient.Do(req)
	expectStatus(t, resp, err, http.StatusMethodNotAllowed)
	resp.Body.Close()

	resp, err = http.Get(ts.server.URL + "/assignments/1/unknown")
	expectStatus(t, resp, err, http.StatusNotFound)
	resp.Body.Close()

	resp, err = http.Get(ts.server.URL + "/import/all")
	expectStatus(t, resp, err, http.StatusMethodNotAllowed)
	resp.Body.Close()
}
