package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/analytics"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

const defaultDays = 30

// Source is where the admin reads orders and feedback from. *orders.Client
// implements it.
type Source interface {
	ListOrders(ctx context.Context, since time.Time) ([]domain.Order, error)
	ListFeedback(ctx context.Context, limit int) ([]domain.Feedback, error)
}

type Handler struct {
	source   Source
	cache    *Refresher
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler serves analytics over source. cache may be nil; when set,
// dashboard requests are answered from its latest snapshot while fresh.
func NewHandler(source Source, cache *Refresher, location *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		source:   source,
		cache:    cache,
		location: location,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(location) },
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /reports/orders.csv", telemetry.WithHTTPRoute(h.HandleExportCSV))
	mux.HandleFunc("GET /reports/{type}", telemetry.WithHTTPRoute(h.HandleReport))
	mux.HandleFunc("GET /dashboard", telemetry.WithHTTPRoute(h.HandleDashboard))
	mux.HandleFunc("GET /summary", telemetry.WithHTTPRoute(h.HandleSummary))
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}
	reportType := analytics.ParseReportType(r.PathValue("type"))
	now := h.now()

	orders, err := h.source.ListOrders(r.Context(), windowStart(now, days))
	if err != nil {
		h.logger.Error("failed to load orders for report", "error", err, "type", reportType)
		h.writeSourceError(w, err)
		return
	}

	report := analytics.GenerateReport(orders, reportType, days, now)

	h.logger.Info("report generated", "type", reportType, "days", days, "orders", report.Summary.TotalOrders)
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	period := analytics.Period(r.URL.Query().Get("period"))
	switch period {
	case "":
		period = analytics.PeriodToday
	case analytics.PeriodToday, analytics.PeriodWeek, analytics.PeriodMonth, analytics.PeriodYear:
	default:
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "period must be today, week, month or year")
		return
	}

	if h.cache != nil {
		if stats, ok := h.cache.Fresh(period, h.now()); ok {
			h.writeJSON(w, http.StatusOK, stats)
			return
		}
	}

	stats, err := ComputeDashboard(r.Context(), h.source, period, h.now())
	if err != nil {
		h.logger.Error("failed to compute dashboard", "error", err, "period", period)
		h.writeSourceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}
	now := h.now()

	orders, err := h.source.ListOrders(r.Context(), windowStart(now, days))
	if err != nil {
		h.logger.Error("failed to load orders for summary", "error", err)
		h.writeSourceError(w, err)
		return
	}
	feedback, err := h.source.ListFeedback(r.Context(), 0)
	if err != nil {
		h.logger.Error("failed to load feedback for summary", "error", err)
		h.writeSourceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, analytics.Summarize(orders, feedback, days, now))
}

// HandleExportCSV renders into a buffer first so a failure still yields a
// proper error response.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if r.URL.Query().Has("days") {
		days, ok := h.days(w, r)
		if !ok {
			return
		}
		since = windowStart(h.now(), days)
	}

	orders, err := h.source.ListOrders(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to load orders for export", "error", err)
		h.writeSourceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := analytics.WriteOrdersCSV(&buf, orders, h.location); err != nil {
		h.logger.Error("failed to render csv", "error", err)
		h.writeError(w, http.StatusInternalServerError, storeerr.CodeInternal, storeerr.CodeInternal.Message())
		return
	}

	filename := fmt.Sprintf("orders-%s.csv", h.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("failed to write csv", "error", err)
		return
	}

	h.logger.Info("orders exported", "count", len(orders))
}

// ComputeDashboard loads enough history for both the period's stat cards and
// its revenue chart.
func ComputeDashboard(ctx context.Context, source Source, period analytics.Period, now time.Time) (analytics.DashboardStats, error) {
	since := period.Start(now)
	if chart := windowStart(now, period.Days()); chart.Before(since) {
		since = chart
	}

	orders, err := source.ListOrders(ctx, since)
	if err != nil {
		return analytics.DashboardStats{}, err
	}
	feedback, err := source.ListFeedback(ctx, 0)
	if err != nil {
		return analytics.DashboardStats{}, err
	}
	return analytics.Dashboard(orders, feedback, period, now), nil
}

func windowStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

func (h *Handler) days(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("days")
	if s == "" {
		return defaultDays, true
	}
	days, err := strconv.Atoi(s)
	if err != nil || days <= 0 || days > 366 {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "days must be between 1 and 366")
		return 0, false
	}
	return days, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code storeerr.Code, message string) {
	h.writeJSON(w, status, map[string]string{"error": message, "code": string(code)})
}

// writeSourceError reports an orders service failure. Upstream problems are
// the admin's gateway error, except for the caller's own cancellation.
func (h *Handler) writeSourceError(w http.ResponseWriter, err error) {
	code := storeerr.Classify(err)
	status := http.StatusBadGateway
	switch code {
	case storeerr.CodeCancelled, storeerr.CodeDeadlineExceeded:
		status = storeerr.HTTPStatus(code)
	}
	h.writeError(w, status, code, code.Message())
}
