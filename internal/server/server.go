package server

import (
	"log/slog"
	"net/http"

	"github.com/tech17x/fizzyadmin-sub000/internal/handlers"
	"github.com/tech17x/fizzyadmin-sub000/internal/services"
)

type Server struct {
	reports     *services.Reports
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(reports *services.Reports, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		reports:     reports,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(reports, logger),
		sseHandlers: handlers.NewSSEHandlers(reports, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// Snapshot reads
	s.mux.HandleFunc("GET /api/metrics", s.apiHandlers.HandleMetrics)
	s.mux.HandleFunc("GET /api/metrics/export.xlsx", s.apiHandlers.HandleExport)
	s.mux.HandleFunc("GET /api/top-items", s.apiHandlers.HandleTopItems)
	s.mux.HandleFunc("GET /api/orders", s.apiHandlers.HandleOrders)
	s.mux.HandleFunc("GET /api/orders/{id}", s.apiHandlers.HandleOrder)

	// Stateless engines and backend refresh
	s.mux.HandleFunc("POST /api/reports/aggregate", s.apiHandlers.HandleAggregate)
	s.mux.HandleFunc("POST /api/records/filter", s.apiHandlers.HandleFilter)
	s.mux.HandleFunc("POST /api/reports/refresh", s.apiHandlers.HandleRefresh)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/metrics", s.sseHandlers.HandleMetrics)
	s.mux.HandleFunc("GET /sse/top-items", s.sseHandlers.HandleTopItems)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
