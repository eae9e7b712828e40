package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/zimmet-api/internal/middleware"
)

// Router настраивает маршруты API
type Router struct {
	mux               *http.ServeMux
	logger            *slog.Logger
	empHandler        *EmployeeHandler
	deviceHandler     *DeviceHandler
	assignmentHandler *AssignmentHandler
	inventoryHandler  *InventoryHandler
}

// NewRouter создаёт новый роутер
func NewRouter(
	empHandler *EmployeeHandler,
	deviceHandler *DeviceHandler,
	assignmentHandler *AssignmentHandler,
	inventoryHandler *InventoryHandler,
	logger *slog.Logger,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		logger:            logger,
		empHandler:        empHandler,
		deviceHandler:     deviceHandler,
		assignmentHandler: assignmentHandler,
		inventoryHandler:  inventoryHandler,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	// Точные пути коллекций регистрируются отдельно, иначе ServeMux
	// отвечает 301 и клиент повторяет POST как GET
	r.mux.HandleFunc("/employees", r.employeesRouter)
	r.mux.HandleFunc("/employees/", r.employeesRouter)
	r.mux.HandleFunc("/devices", r.devicesRouter)
	r.mux.HandleFunc("/devices/", r.devicesRouter)
	r.mux.HandleFunc("/assignments", r.assignmentsRouter)
	r.mux.HandleFunc("/assignments/", r.assignmentsRouter)

	r.mux.HandleFunc("/import/all", only(http.MethodPost, r.inventoryHandler.Import))
	r.mux.HandleFunc("/import/all/xlsx", only(http.MethodPost, r.inventoryHandler.ImportXLSX))
	r.mux.HandleFunc("/export/all", only(http.MethodGet, r.inventoryHandler.Export))
	r.mux.HandleFunc("/reports/summary", only(http.MethodGet, r.inventoryHandler.Summary))

	// Health check
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Применяем middleware
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.Recoverer(r.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// employeesRouter обрабатывает все запросы к /employees/
func (r *Router) employeesRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.Trim(strings.TrimPrefix(req.URL.Path, "/employees"), "/")

	switch {
	case path == "":
		methods(w, req, map[string]http.HandlerFunc{
			http.MethodGet:  r.empHandler.List,
			http.MethodPost: r.empHandler.Create,
		})
	case path == "import":
		only(http.MethodPost, r.empHandler.Import)(w, req)
	case path == "export":
		only(http.MethodGet, r.empHandler.Export)(w, req)
	case !strings.Contains(path, "/"):
		// /employees/{id}
		methods(w, req, map[string]http.HandlerFunc{
			http.MethodGet: r.empHandler.GetByID,
			http.MethodPut: r.empHandler.Update,
		})
	default:
		notFound(w)
	}
}

// devicesRouter обрабатывает все запросы к /devices/
func (r *Router) devicesRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.Trim(strings.TrimPrefix(req.URL.Path, "/devices"), "/")

	switch {
	case path == "":
		methods(w, req, map[string]http.HandlerFunc{
			http.MethodGet:  r.deviceHandler.List,
			http.MethodPost: r.deviceHandler.Create,
		})
	case path == "export":
		only(http.MethodGet, r.deviceHandler.Export)(w, req)
	case !strings.Contains(path, "/"):
		methods(w, req, map[string]http.HandlerFunc{
			http.MethodGet: r.deviceHandler.GetByID,
			http.MethodPut: r.deviceHandler.Update,
		})
	default:
		notFound(w)
	}
}

// assignmentsRouter обрабатывает все запросы к /assignments/
func (r *Router) assignmentsRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.Trim(strings.TrimPrefix(req.URL.Path, "/assignments"), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "":
		methods(w, req, map[string]http.HandlerFunc{
			http.MethodGet:  r.assignmentHandler.List,
			http.MethodPost: r.assignmentHandler.Create,
		})
	case path == "import":
		only(http.MethodPost, r.assignmentHandler.Import)(w, req)
	case path == "import/xlsx":
		only(http.MethodPost, r.assignmentHandler.ImportXLSX)(w, req)
	case path == "export":
		only(http.MethodGet, r.assignmentHandler.Export)(w, req)
	case len(parts) == 1:
		// /assignments/{id}
		methods(w, req, map[string]http.HandlerFunc{
			http.MethodGet: r.assignmentHandler.GetByID,
			http.MethodPut: r.assignmentHandler.Update,
		})
	case len(parts) == 2 && parts[1] == "return":
		// /assignments/{id}/return
		only(http.MethodPost, r.assignmentHandler.Return)(w, req)
	default:
		notFound(w)
	}
}

func methods(w http.ResponseWriter, req *http.Request, handlers map[string]http.HandlerFunc) {
	h, ok := handlers[req.Method]
	if !ok {
		methodNotAllowed(w)
		return
	}
	h(w, req)
}

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			methodNotAllowed(w)
			return
		}
		h(w, req)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
}

func notFound(w http.ResponseWriter) {
	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}
