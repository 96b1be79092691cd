// Package backend fetches raw day reports from the POS backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tech17x/fizzyadmin-sub000/internal/config"
	"github.com/tech17x/fizzyadmin-sub000/internal/errors"
	"github.com/tech17x/fizzyadmin-sub000/internal/session"
)

const (
	dayReportPath = "/api/reports/day"
	dateLayout    = "2006-01-02"
	maxReportBody = 64 << 20
)

// ReportQuery selects the outlets and inclusive date range to fetch.
type ReportQuery struct {
	OutletIDs []string
	From      time.Time
	To        time.Time
}

func (q ReportQuery) Validate() error {
	if len(q.OutletIDs) == 0 {
		return errors.Validation("at least one outlet is required")
	}
	for _, id := range q.OutletIDs {
		if strings.TrimSpace(id) == "" {
			return errors.Validation("outlet id cannot be empty")
		}
	}
	if q.From.IsZero() || q.To.IsZero() {
		return errors.Validation("from and to dates are required")
	}
	if q.To.Before(q.From) {
		return errors.Validation("to date must not be before from date")
	}
	return nil
}

type Client struct {
	baseURL        string
	cookieName     string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxConcurrency int
	logger         *slog.Logger
}

func NewClient(cfg config.BackendConfig, logger *slog.Logger) *Client {
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		cookieName:     cfg.SessionCookie,
		httpClient:     &http.Client{Timeout: cfg.Timeout.Std()},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), concurrency),
		maxConcurrency: concurrency,
		logger:         logger,
	}
}

// FetchDayReports downloads the day reports of every outlet in q and returns
// them as one JSON array, outlets in query order.
func (c *Client) FetchDayReports(ctx context.Context, sess session.Session, q ReportQuery) ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if c.baseURL == "" {
		return nil, errors.ServiceUnavailable("POS backend is not configured")
	}

	parts := make([][]json.RawMessage, len(q.OutletIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)

	for i, outletID := range q.OutletIDs {
		g.Go(func() error {
			reports, err := c.fetchOutlet(gctx, sess, outletID, q.From, q.To)
			if err != nil {
				return fmt.Errorf("outlet %s: %w", outletID, err)
			}
			parts[i] = reports
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]json.RawMessage, 0)
	for _, p := range parts {
		merged = append(merged, p...)
	}
	return json.Marshal(merged)
}

func (c *Client) fetchOutlet(ctx context.Context, sess session.Session, outletID string, from, to time.Time) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("outlet_id", outletID)
	params.Set("start_date", from.Format(dateLayout))
	params.Set("end_date", to.Format(dateLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+dayReportPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.InternalWrap(err, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: sess.Token})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ServiceUnavailableWrap(err, "POS backend unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBody))
	if err != nil {
		return nil, errors.ServiceUnavailableWrap(err, "read backend response")
	}

	c.logger.Debug("backend day reports fetched",
		"outlet_id", outletID,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.Unauthorized("POS backend rejected the session")
	case resp.StatusCode == http.StatusForbidden:
		return nil, errors.Forbidden("POS backend denied access to outlet")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.ServiceUnavailable(fmt.Sprintf("POS backend returned status %d", resp.StatusCode))
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, errors.ServiceUnavailable("POS backend returned a non-array payload")
	}

	var reports []json.RawMessage
	if err := json.Unmarshal(body, &reports); err != nil {
		return nil, errors.ServiceUnavailableWrap(err, "decode backend response")
	}
	return reports, nil
}
