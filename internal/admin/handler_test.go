package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/analytics"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	orders    []domain.Order
	feedback  []domain.Feedback
	err       error
	sinces    []time.Time
	feedbacks int
}

func (s *fakeSource) ListOrders(_ context.Context, since time.Time) ([]domain.Order, error) {
	s.sinces = append(s.sinces, since)
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Order
	for _, o := range s.orders {
		if !o.CreatedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeSource) ListFeedback(context.Context, int) ([]domain.Feedback, error) {
	s.feedbacks++
	return s.feedback, s.err
}

func newSource() *fakeSource {
	item := func(name string, price int64, qty int) domain.OrderItem {
		return domain.OrderItem{Name: name, Price: price, Quantity: qty}
	}
	return &fakeSource{
		orders: []domain.Order{
			{ID: "o1", Customer: domain.CustomerInfo{Name: "Lan", Phone: "0901"}, Items: []domain.OrderItem{item("Trà Chanh", 10000, 3)},
				Total: 30000, IsPaid: true, Status: domain.OrderStatusCompleted, CreatedAt: testNow.Add(-time.Hour)},
			{ID: "o2", Customer: domain.CustomerInfo{Name: "Minh", Phone: "0902"}, Items: []domain.OrderItem{item("Bạc Xỉu", 25000, 1)},
				Total: 25000, Status: domain.OrderStatusPending, CreatedAt: testNow.Add(-2 * time.Hour)},
			{ID: "o3", Customer: domain.CustomerInfo{Name: "Lan", Phone: "0901"}, Items: []domain.OrderItem{item("Cafe Nâu", 20000, 2)},
				Total: 40000, IsPaid: true, Status: domain.OrderStatusArchived, CreatedAt: testNow.Add(-5 * 24 * time.Hour)},
		},
		feedback: []domain.Feedback{{Rating: 5}, {Rating: 4}},
	}
}

func newTestMux(source Source, cache *Refresher) *http.ServeMux {
	h := NewHandler(source, cache, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return testNow }
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func TestHandler_HandleReport(t *testing.T) {
	t.Run("comprehensive report over window", func(t *testing.T) {
		source := newSource()
		mux := newTestMux(source, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports/comprehensive?days=7", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var report analytics.Report
		if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if report.Summary.TotalOrders != 3 || report.Summary.TotalRevenue != 70000 {
			t.Errorf("unexpected summary %+v", report.Summary)
		}
		if want := testNow.Add(-7 * 24 * time.Hour); !source.sinces[0].Equal(want) {
			t.Errorf("expected since %v, got %v", want, source.sinces[0])
		}
	})

	t.Run("unknown type falls back to comprehensive", func(t *testing.T) {
		mux := newTestMux(newSource(), nil)

		req := httptest.NewRequest(http.MethodGet, "/reports/whatever", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		var report analytics.Report
		if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if report.Type != analytics.ReportComprehensive || report.Days != defaultDays {
			t.Errorf("unexpected report %s over %d days", report.Type, report.Days)
		}
	})

	t.Run("rejects bad days", func(t *testing.T) {
		mux := newTestMux(newSource(), nil)

		for _, q := range []string{"0", "-3", "abc", "1000"} {
			req := httptest.NewRequest(http.MethodGet, "/reports/revenue?days="+q, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("days=%s: expected status 400, got %d", q, rec.Code)
			}
		}
	})

	t.Run("orders service failure is a bad gateway", func(t *testing.T) {
		source := newSource()
		source.err = &storeerr.Error{Code: storeerr.CodeUnavailable, Op: "list orders"}
		mux := newTestMux(source, nil)

		req := httptest.NewRequest(http.MethodGet, "/reports/orders", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleDashboard(t *testing.T) {
	t.Run("today", func(t *testing.T) {
		mux := newTestMux(newSource(), nil)

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		var stats analytics.DashboardStats
		if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if stats.Period != analytics.PeriodToday || stats.TotalOrders != 2 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if stats.TotalRevenue != 30000 || stats.ActiveOrders != 1 || stats.AverageRating != 4.5 {
			t.Errorf("unexpected cards %+v", stats)
		}
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		mux := newTestMux(newSource(), nil)

		req := httptest.NewRequest(http.MethodGet, "/dashboard?period=decade", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("serves fresh snapshots from the refresher", func(t *testing.T) {
		source := newSource()
		refresher := NewRefresher(source, time.Minute, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
		refresher.now = func() time.Time { return testNow }
		refresher.Refresh(context.Background())

		calls := len(source.sinces)
		mux := newTestMux(source, refresher)

		req := httptest.NewRequest(http.MethodGet, "/dashboard?period=week", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if len(source.sinces) != calls {
			t.Error("expected the cached snapshot to be served")
		}
	})
}

func TestHandler_HandleSummary(t *testing.T) {
	mux := newTestMux(newSource(), nil)

	req := httptest.NewRequest(http.MethodGet, "/summary?days=7", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var cards analytics.SummaryCards
	if err := json.NewDecoder(rec.Body).Decode(&cards); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if cards.TotalOrders != 3 || cards.Customers != 2 || cards.Satisfaction != 90 {
		t.Errorf("unexpected cards %+v", cards)
	}
}

func TestHandler_HandleExportCSV(t *testing.T) {
	source := newSource()
	mux := newTestMux(source, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports/orders.csv", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected csv content type, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "orders-2025-03-15.csv") {
		t.Errorf("unexpected disposition %s", cd)
	}
	if !source.sinces[0].IsZero() {
		t.Errorf("export without days should read all orders, got since %v", source.sinces[0])
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("expected header plus 3 rows, got %d", len(rows))
	}
}

func TestRefresher_KeepsSnapshotOnFailure(t *testing.T) {
	source := newSource()
	refresher := NewRefresher(source, time.Minute, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	refresher.now = func() time.Time { return testNow }
	refresher.Refresh(context.Background())

	source.err = &storeerr.Error{Code: storeerr.CodeUnavailable}
	refresher.now = func() time.Time { return testNow.Add(30 * time.Second) }
	refresher.Refresh(context.Background())

	stats, ok := refresher.Fresh(analytics.PeriodToday, testNow.Add(45*time.Second))
	if !ok {
		t.Fatal("expected previous snapshot to still be fresh")
	}
	if stats.TotalOrders != 2 {
		t.Errorf("expected 2 orders, got %d", stats.TotalOrders)
	}

	if _, ok := refresher.Fresh(analytics.PeriodToday, testNow.Add(2*time.Minute)); ok {
		t.Error("expected snapshot to expire after one interval")
	}
}

func TestRefresher_RunStopsWithContext(t *testing.T) {
	refresher := NewRefresher(newSource(), time.Hour, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refresher.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
