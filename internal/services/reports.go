package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/tech17x/fizzyadmin-sub000/internal/backend"
	"github.com/tech17x/fizzyadmin-sub000/internal/errors"
	"github.com/tech17x/fizzyadmin-sub000/internal/models"
	"github.com/tech17x/fizzyadmin-sub000/internal/observability"
	"github.com/tech17x/fizzyadmin-sub000/internal/session"
)

// ReportSource supplies raw day-report JSON arrays.
type ReportSource interface {
	FetchDayReports(ctx context.Context, sess session.Session, q backend.ReportQuery) ([]byte, error)
}

type snapshot struct {
	metrics  models.Metrics
	orders   []models.Record
	reports  int
	loadedAt time.Time
	source   string
}

// Reports holds the most recently loaded set of day reports and their
// metrics. Readers always see a complete snapshot.
type Reports struct {
	mu         sync.RWMutex
	current    *snapshot
	aggregator Aggregator
	source     ReportSource
	logger     *slog.Logger
}

func NewReports(aggregator Aggregator, source ReportSource, logger *slog.Logger) *Reports {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reports{
		current:    &snapshot{metrics: aggregator.Aggregate(nil), orders: []models.Record{}},
		aggregator: aggregator,
		source:     source,
		logger:     logger,
	}
}

// Aggregate computes metrics without touching the held snapshot.
func (r *Reports) Aggregate(reports []models.DayReport) models.Metrics {
	return r.aggregator.Aggregate(reports)
}

// Filter runs the filter engine over caller-supplied records.
func (r *Reports) Filter(records []models.Record, q FilterQuery) []models.Record {
	return FilterRecords(records, q)
}

// Load replaces the snapshot with the day reports in raw, a JSON array.
func (r *Reports) Load(ctx context.Context, raw []byte, source string) error {
	_, span := observability.StartSpan(ctx, "reports.load")
	defer span.FinishAndLog(ctx, r.logger)
	span.SetTag("source", source)

	snap, err := r.build(raw, source)
	if err != nil {
		span.SetError(err)
		return err
	}

	r.mu.Lock()
	r.current = snap
	r.mu.Unlock()

	r.logger.Info("reports loaded",
		"source", source,
		"reports", snap.reports,
		"orders", snap.metrics.TotalOrders,
		"untimed_orders", snap.metrics.UntimedOrders,
	)
	if snap.metrics.UntimedOrders > 0 {
		r.logger.Warn("orders without kds_at bucketed at load time",
			"untimed_orders", snap.metrics.UntimedOrders,
		)
	}
	return nil
}

func (r *Reports) build(raw []byte, source string) (*snapshot, error) {
	reports, err := models.DecodeDayReports(raw)
	if err != nil {
		return nil, decodeError(err, "invalid day reports payload")
	}

	var outlets []struct {
		OutletName string          `json:"outletName"`
		Orders     []models.Record `json:"orders"`
	}
	if err := json.Unmarshal(raw, &outlets); err != nil {
		return nil, errors.ValidationWrap(err, "invalid day reports payload")
	}

	orders := make([]models.Record, 0)
	for _, o := range outlets {
		for _, order := range o.Orders {
			rec := maps.Clone(order)
			if rec == nil {
				rec = models.Record{}
			}
			if _, ok := rec["outletName"]; !ok {
				rec["outletName"] = models.String(o.OutletName)
			}
			orders = append(orders, rec)
		}
	}

	return &snapshot{
		metrics:  r.aggregator.Aggregate(reports),
		orders:   orders,
		reports:  len(reports),
		loadedAt: time.Now(),
		source:   source,
	}, nil
}

func (r *Reports) LoadFromFile(ctx context.Context, filename string) error {
	start := time.Now()
	r.logger.Info("loading day reports file", "filename", filename)

	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read reports file: %w", err)
	}
	if err := r.Load(ctx, raw, "file:"+filename); err != nil {
		return fmt.Errorf("load %s: %w", filename, err)
	}

	r.logger.Info("reports file processed", "filename", filename, "duration", time.Since(start))
	return nil
}

// Refresh pulls day reports for q from the POS backend on behalf of sess.
func (r *Reports) Refresh(ctx context.Context, sess session.Session, q backend.ReportQuery) error {
	if !sess.Valid() {
		return errors.Unauthorized("a staff session is required")
	}
	if !sess.Has(session.PermReportsView) {
		return errors.Forbidden("missing permission " + session.PermReportsView)
	}
	if r.source == nil {
		return errors.ServiceUnavailable("no report source configured")
	}

	ctx, span := observability.StartSpan(ctx, "reports.refresh")
	defer span.FinishAndLog(ctx, r.logger)
	span.SetTag("staff_id", sess.StaffID)

	raw, err := r.source.FetchDayReports(ctx, sess, q)
	if err != nil {
		span.SetError(err)
		span.SetTag("error_code", string(errors.CodeOf(err)))
		return fmt.Errorf("fetch day reports: %w", err)
	}
	return r.Load(ctx, raw, "backend")
}

func (r *Reports) Metrics() models.Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.metrics
}

func (r *Reports) TopItems(limit int) []models.ItemSales {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return truncate(r.current.metrics.TopItems, limit)
}

// Orders filters the snapshot's order records. Each record carries the
// outletName of its day report.
func (r *Reports) Orders(q FilterQuery) []models.Record {
	r.mu.RLock()
	orders := r.current.orders
	r.mu.RUnlock()
	return FilterRecords(orders, q)
}

// Order returns the snapshot order whose id is id.
func (r *Reports) Order(id string) (models.Record, error) {
	r.mu.RLock()
	orders := r.current.orders
	r.mu.RUnlock()

	for _, order := range orders {
		if v, ok := order["id"].Str(); ok && v == id {
			return order, nil
		}
	}
	return nil, errors.NotFound("order " + id + " not found")
}

func (r *Reports) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"reports":        r.current.reports,
		"orders":         r.current.metrics.TotalOrders,
		"untimed_orders": r.current.metrics.UntimedOrders,
		"outlets":        len(r.current.metrics.OutletPerformance),
		"last_loaded":    r.current.loadedAt,
		"source":         r.current.source,
	}
}

func decodeError(err error, message string) error {
	if stderrors.Is(err, models.ErrNotArray) {
		return errors.ValidationWrap(err, message).WithDetails(err.Error())
	}
	return errors.ValidationWrap(err, message)
}
