package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type upstream struct {
	name   string
	server *httptest.Server
}

func newUpstream(t *testing.T, name string) *upstream {
	t.Helper()
	u := &upstream{name: name}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", name)
		if strings.HasSuffix(r.URL.Path, ".csv") {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="orders-2026-10-15.csv"`)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"upstream": name,
			"method":   r.Method,
			"path":     r.URL.Path,
			"query":    r.URL.RawQuery,
		})
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newTestMux(orders, menu, admin *ServiceProxy) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(orders, menu, admin, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)
	return mux
}

func TestHandler_Routing(t *testing.T) {
	orders := newUpstream(t, "orders")
	menu := newUpstream(t, "menu")
	admin := newUpstream(t, "admin")

	mux := newTestMux(
		NewServiceProxy(orders.server.URL, orders.server.Client()),
		NewServiceProxy(menu.server.URL, menu.server.Client()),
		NewServiceProxy(admin.server.URL, admin.server.Client()),
	)

	tests := []struct {
		method       string
		target       string
		wantUpstream string
		wantQuery    string
	}{
		{http.MethodGet, "/orders?status=pending", "orders", "status=pending"},
		{http.MethodPost, "/orders", "orders", ""},
		{http.MethodPost, "/orders/abc/advance", "orders", ""},
		{http.MethodPost, "/orders/abc/cancel?confirm=true", "orders", "confirm=true"},
		{http.MethodGet, "/feedback?limit=5", "orders", "limit=5"},
		{http.MethodDelete, "/feedback/abc", "orders", ""},
		{http.MethodGet, "/menu?category=coffee", "menu", "category=coffee"},
		{http.MethodPut, "/menu/3", "menu", ""},
		{http.MethodGet, "/promotions/current", "menu", ""},
		{http.MethodGet, "/reports/revenue?days=7", "admin", "days=7"},
		{http.MethodGet, "/dashboard?period=week", "admin", "period=week"},
		{http.MethodGet, "/summary", "admin", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			var got map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got["upstream"] != tt.wantUpstream {
				t.Errorf("expected %s upstream, got %s", tt.wantUpstream, got["upstream"])
			}
			if got["method"] != tt.method {
				t.Errorf("expected method %s, got %s", tt.method, got["method"])
			}
			if got["query"] != tt.wantQuery {
				t.Errorf("expected query %q, got %q", tt.wantQuery, got["query"])
			}
		})
	}
}

func TestHandler_HandleOrders(t *testing.T) {
	t.Run("proxies POST /orders with body", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"note":"ít đá"}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"new-id"}`))
		}))
		defer ordersServer.Close()

		handler := NewHandler(
			NewServiceProxy(ordersServer.URL, ordersServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"note":"ít đá"}`))
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
		if rec.Body.String() != `{"id":"new-id"}` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"order not found","code":"not-found"}`))
		}))
		defer ordersServer.Close()

		handler := NewHandler(
			NewServiceProxy(ordersServer.URL, ordersServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodGet, "/orders/unknown", nil)
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when orders service unavailable", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://unused", http.DefaultClient),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" {
			t.Errorf("expected 'service unavailable', got %s", resp["error"])
		}
		if resp["code"] != "unavailable" {
			t.Errorf("expected code unavailable, got %s", resp["code"])
		}
	})
}

func TestHandler_HandleAdmin(t *testing.T) {
	admin := newUpstream(t, "admin")
	handler := NewHandler(
		NewServiceProxy("http://unused", http.DefaultClient),
		NewServiceProxy("http://unused", http.DefaultClient),
		NewServiceProxy(admin.server.URL, admin.server.Client()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	req := httptest.NewRequest(http.MethodGet, "/reports/orders.csv?days=7", nil)
	rec := httptest.NewRecorder()

	handler.HandleAdmin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("expected text/csv, got %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "orders-2026-10-15.csv") {
		t.Errorf("expected attachment header, got %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Header().Get("X-Upstream") != "" {
		t.Error("expected only the whitelisted headers to be copied")
	}
}
