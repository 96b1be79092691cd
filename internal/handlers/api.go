package handlers

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tech17x/fizzyadmin-sub000/internal/backend"
	"github.com/tech17x/fizzyadmin-sub000/internal/errors"
	"github.com/tech17x/fizzyadmin-sub000/internal/exporter"
	"github.com/tech17x/fizzyadmin-sub000/internal/models"
	"github.com/tech17x/fizzyadmin-sub000/internal/observability"
	"github.com/tech17x/fizzyadmin-sub000/internal/services"
	"github.com/tech17x/fizzyadmin-sub000/internal/session"
)

const (
	defaultTopItems = 10
	dateLayout      = "2006-01-02"
)

// defaultOrderKeys are searched by GET /api/orders when keys is not given.
var defaultOrderKeys = []string{"id", "customer.name", "counterStaff.name", "items.name"}

type APIHandlers struct {
	reports *services.Reports
	logger  *slog.Logger
}

func NewAPIHandlers(reports *services.Reports, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		reports: reports,
		logger:  logger,
	}
}

// FilterRequest is the body of POST /api/records/filter.
type FilterRequest struct {
	Records    json.RawMessage   `json:"records" validate:"required"`
	SearchTerm string            `json:"search_term"`
	SearchKeys []string          `json:"search_keys" validate:"omitempty,dive,required"`
	Filters    map[string]string `json:"filters" validate:"omitempty,dive,keys,required,endkeys"`
}

// RefreshRequest is the body of POST /api/reports/refresh.
type RefreshRequest struct {
	OutletIDs []string `json:"outlet_ids" validate:"required,min=1,dive,required"`
	From      string   `json:"from" validate:"required,datetime=2006-01-02"`
	To        string   `json:"to" validate:"required,datetime=2006-01-02"`
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	headers := map[string]string{
		"Cache-Control": "no-cache",
	}

	errors.WriteSuccessWithHeaders(w, h.reports.Metrics(), headers)
}

func (h *APIHandlers) HandleTopItems(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopItems
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(w, r, errors.BadRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, defaultTopItems)
	}

	errors.WriteSuccess(w, h.reports.TopItems(limit))
}

// HandleOrders filters the loaded orders. q is the search term, keys a
// comma-separated list of dotted paths; any other query parameter is an
// exact filter on a top-level order field.
func (h *APIHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := services.FilterQuery{
		SearchTerm: query.Get("q"),
		SearchKeys: defaultOrderKeys,
		Filters:    make(map[string]string),
	}
	if keys := query.Get("keys"); keys != "" {
		q.SearchKeys = splitNonEmpty(keys)
	}
	for field, values := range query {
		if field == "q" || field == "keys" || len(values) == 0 {
			continue
		}
		q.Filters[field] = values[0]
	}

	errors.WriteSuccess(w, h.reports.Orders(q))
}

func (h *APIHandlers) HandleOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.reports.Order(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccess(w, order)
}

func (h *APIHandlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.fail(w, r, errors.BadRequestWrap(err, "request body too large"))
			return
		}
		h.fail(w, r, errors.BadRequestWrap(err, "read request body"))
		return
	}

	reports, err := models.DecodeDayReports(body)
	if err != nil {
		h.fail(w, r, decodeFailure(err, "reports"))
		return
	}

	errors.WriteSuccess(w, h.reports.Aggregate(reports))
}

func (h *APIHandlers) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	records, err := models.DecodeRecords(bytes.TrimSpace(req.Records))
	if err != nil {
		h.fail(w, r, decodeFailure(err, "records"))
		return
	}

	result := h.reports.Filter(records, services.FilterQuery{
		SearchTerm: req.SearchTerm,
		SearchKeys: req.SearchKeys,
		Filters:    req.Filters,
	})
	errors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	from, _ := time.Parse(dateLayout, req.From)
	to, _ := time.Parse(dateLayout, req.To)

	sess, _ := session.FromContext(r.Context())
	query := backend.ReportQuery{OutletIDs: req.OutletIDs, From: from, To: to}
	if err := h.reports.Refresh(r.Context(), sess, query); err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, h.reports.Stats())
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := exporter.WriteMetrics(&buf, h.reports.Metrics()); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "export metrics"))
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="metrics-`+time.Now().Format(dateLayout)+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write export", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.reports.Stats())
}

func decodeFailure(err error, what string) error {
	if stderrors.Is(err, models.ErrNotArray) {
		return errors.ValidationWrap(err, what+" must be a JSON array")
	}
	return errors.BadRequestWrap(err, "malformed "+what).WithDetails(err.Error())
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
