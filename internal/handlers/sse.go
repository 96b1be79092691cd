package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/tech17x/fizzyadmin-sub000/internal/models"
	"github.com/tech17x/fizzyadmin-sub000/internal/services"
)

const maxItemRows = 10

var funcs = template.FuncMap{
	"money": func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2)
	},
	"qty": func(v float64) string {
		return decimal.NewFromFloat(v).String()
	},
}

var itemsTableTemplate = template.Must(template.New("itemsTable").Funcs(funcs).Parse(`
<div id="items-content">
<table class="modern-table">
<thead><tr><th>Item</th><th>Quantity</th><th>Revenue</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Name}}</td>
<td>{{qty .Quantity}}</td>
<td><strong>${{money .Revenue}}</strong></td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var summaryTemplate = template.Must(template.New("summary").Funcs(funcs).Parse(`
<div id="summary-content">
<dl class="summary-cards">
<dt>Orders</dt><dd>{{.TotalOrders}}</dd>
<dt>Revenue</dt><dd>${{money .TotalRevenue}}</dd>
<dt>Net revenue</dt><dd>${{money .NetRevenue}}</dd>
<dt>Average order</dt><dd>${{money .AverageOrderValue}}</dd>
<dt>Tips</dt><dd>${{money .TotalTips}}</dd>
<dt>Refunds</dt><dd>${{money .TotalRefunds}}</dd>
<dt>Customers</dt><dd>{{.UniqueCustomers}}</dd>
</dl>
</div>`))

type SSEHandlers struct {
	reports *services.Reports
	logger  *slog.Logger
}

func NewSSEHandlers(reports *services.Reports, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		reports: reports,
		logger:  logger,
	}
}

func (h *SSEHandlers) renderItemsTable(items []models.ItemSales) (string, error) {
	if len(items) > maxItemRows {
		items = items[:maxItemRows]
	}

	var buf strings.Builder
	err := itemsTableTemplate.Execute(&buf, items)
	return buf.String(), err
}

func (h *SSEHandlers) renderSummary(m models.Metrics) (string, error) {
	var buf strings.Builder
	err := summaryTemplate.Execute(&buf, m)
	return buf.String(), err
}

func (h *SSEHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	m := h.reports.Metrics()
	signals, err := json.Marshal(map[string]any{"metrics": m})
	if err != nil {
		h.logger.Error("marshal metrics signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch metrics signals", "error", err)
		return
	}

	html, err := h.renderSummary(m)
	if err != nil {
		h.logger.Error("render summary", "error", err)
		return
	}
	sse.PatchElements(html)

	flush(w)
}

func (h *SSEHandlers) HandleTopItems(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderItemsTable(h.reports.TopItems(maxItemRows))
	if err != nil {
		h.logger.Error("render items table", "error", err)
		return
	}
	sse.PatchElements(html)

	flush(w)
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	m := h.reports.Metrics()

	summary, err := h.renderSummary(m)
	if err != nil {
		h.logger.Error("render summary", "error", err)
		return
	}
	sse.PatchElements(summary)

	items, err := h.renderItemsTable(m.TopItems)
	if err != nil {
		h.logger.Error("render items table", "error", err)
		return
	}
	sse.PatchElements(items)

	signals, err := json.Marshal(map[string]any{"metrics": m})
	if err != nil {
		h.logger.Error("marshal metrics signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
