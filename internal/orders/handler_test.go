package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

const knownID = "3f1c2b9e-8a41-4d7c-9b0e-1a2b3c4d5e6f"

type fakeStore struct {
	orders    map[string]*domain.Order
	createErr error
	listErr   error
	lastList  ListFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*domain.Order{
		knownID: {ID: knownID, Status: domain.OrderStatusPending, Total: 30000},
	}}
}

func (s *fakeStore) Create(_ context.Context, order *domain.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	order.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", len(s.orders))
	s.orders[order.ID] = order
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	return s.orders[id], nil
}

func (s *fakeStore) List(_ context.Context, f ListFilter) ([]domain.Order, error) {
	s.lastList = f
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Order
	for _, o := range s.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Status = status
	return o, nil
}

func (s *fakeStore) Advance(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	next, ok := domain.NextStatus(o.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, o.Status)
	}
	o.Status = next
	return o, nil
}

func (s *fakeStore) MarkPaid(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.IsPaid = true
	return o, nil
}

type recordingPublisher struct {
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func newTestHandler(store Store, pub EventPublisher) (*Handler, *http.ServeMux) {
	h := NewHandler(store, pub, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

const validOrder = `{
	"customer_info": {"type": "dine-in", "customer_name": "An", "table_number": "5"},
	"items": [
		{"item_id": 1, "name": "Trà sữa", "price": 30000, "quantity": 1, "sugar": 50, "ice": 100, "toppings": []},
		{"item_id": 4, "name": "Cà phê sữa", "price": 25000, "quantity": 2, "sugar": 100, "ice": 100, "toppings": []}
	],
	"subtotal": 80000,
	"discount_amount": 8000,
	"total_price": 72000,
	"status": "completed",
	"is_paid": true,
	"applied_discount": {"code": "WELCOME10", "type": "percentage", "value": 10, "amount": 8000}
}`

func TestHandler_HandleCreate(t *testing.T) {
	t.Run("stores a valid order as pending and unpaid", func(t *testing.T) {
		store := newFakeStore()
		pub := &recordingPublisher{}
		_, mux := newTestHandler(store, pub)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validOrder))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.ID == "" {
			t.Error("expected an assigned id")
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected pending, got %s", order.Status)
		}
		if order.IsPaid {
			t.Error("expected is_paid to be forced false")
		}
		if order.Total != 72000 {
			t.Errorf("expected total 72000, got %d", order.Total)
		}

		if len(pub.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(pub.events))
		}
		if pub.events[0].Type != domain.EventOrderCreated || pub.events[0].OrderID != order.ID {
			t.Errorf("unexpected event: %+v", pub.events[0])
		}
	})

	t.Run("rejects totals that do not add up", func(t *testing.T) {
		_, mux := newTestHandler(newFakeStore(), nil)

		body := strings.Replace(validOrder, `"total_price": 72000`, `"total_price": 1000`, 1)
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
		if got := decodeError(t, rec)["code"]; got != "invalid-argument" {
			t.Errorf("expected invalid-argument, got %q", got)
		}
	})

	t.Run("rejects dine-in without table", func(t *testing.T) {
		_, mux := newTestHandler(newFakeStore(), nil)

		body := strings.Replace(validOrder, `"table_number": "5"`, `"table_number": ""`, 1)
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		_, mux := newTestHandler(newFakeStore(), nil)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("maps storage failures through the code table", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = &pq.Error{Code: "42501"}
		_, mux := newTestHandler(store, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validOrder))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rec.Code)
		}
		body := decodeError(t, rec)
		if body["code"] != "permission-denied" {
			t.Errorf("expected permission-denied, got %q", body["code"])
		}
		if body["error"] != "Bạn không có quyền thực hiện thao tác này." {
			t.Errorf("unexpected message %q", body["error"])
		}
	})

	t.Run("broker failure does not fail the request", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		_, mux := newTestHandler(newFakeStore(), pub)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(validOrder))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleGet(t *testing.T) {
	_, mux := newTestHandler(newFakeStore(), nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "existing order", path: "/orders/" + knownID, want: http.StatusOK},
		{name: "unknown uuid", path: "/orders/9f1c2b9e-8a41-4d7c-9b0e-1a2b3c4d5e6f", want: http.StatusNotFound},
		{name: "not a uuid", path: "/orders/abc", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHandler_HandleList(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		store := newFakeStore()
		_, mux := newTestHandler(store, nil)

		req := httptest.NewRequest(http.MethodGet, "/orders?status=pending&since=2025-03-01T00:00:00Z", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if store.lastList.Status != domain.OrderStatusPending {
			t.Errorf("expected status filter pending, got %q", store.lastList.Status)
		}
		if !store.lastList.Since.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected since %v", store.lastList.Since)
		}
	})

	t.Run("accepts legacy status labels", func(t *testing.T) {
		store := newFakeStore()
		_, mux := newTestHandler(store, nil)

		req := httptest.NewRequest(http.MethodGet, "/orders?status=%C4%90%C3%A3+h%E1%BB%A7y", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if store.lastList.Status != domain.OrderStatusCancelled {
			t.Errorf("expected cancelled, got %q", store.lastList.Status)
		}
	})

	t.Run("rejects bad since", func(t *testing.T) {
		_, mux := newTestHandler(newFakeStore(), nil)

		req := httptest.NewRequest(http.MethodGet, "/orders?since=yesterday", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("unavailable database yields 503", func(t *testing.T) {
		store := newFakeStore()
		store.listErr = &pq.Error{Code: "08006"}
		_, mux := newTestHandler(store, nil)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rec.Code)
		}
	})
}

func TestHandler_StatusChanges(t *testing.T) {
	t.Run("update accepts any known status", func(t *testing.T) {
		store := newFakeStore()
		store.orders[knownID].Status = domain.OrderStatusCompleted
		pub := &recordingPublisher{}
		_, mux := newTestHandler(store, pub)

		req := httptest.NewRequest(http.MethodPatch, "/orders/"+knownID+"/status", strings.NewReader(`{"status":"pending"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if store.orders[knownID].Status != domain.OrderStatusPending {
			t.Errorf("expected pending, got %s", store.orders[knownID].Status)
		}
		if len(pub.events) != 1 || pub.events[0].Type != domain.EventOrderStatusChanged {
			t.Errorf("expected one status_changed event, got %+v", pub.events)
		}
	})

	t.Run("update rejects unknown status", func(t *testing.T) {
		_, mux := newTestHandler(newFakeStore(), nil)

		req := httptest.NewRequest(http.MethodPatch, "/orders/"+knownID+"/status", strings.NewReader(`{"status":"lost"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("advance walks the sequence then conflicts", func(t *testing.T) {
		store := newFakeStore()
		_, mux := newTestHandler(store, nil)

		for _, want := range []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusCompleted, domain.OrderStatusArchived} {
			req := httptest.NewRequest(http.MethodPost, "/orders/"+knownID+"/advance", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if got := store.orders[knownID].Status; got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		}

		req := httptest.NewRequest(http.MethodPost, "/orders/"+knownID+"/advance", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("cancel requires confirmation", func(t *testing.T) {
		store := newFakeStore()
		_, mux := newTestHandler(store, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders/"+knownID+"/cancel", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusPreconditionRequired {
			t.Errorf("expected status 428, got %d", rec.Code)
		}
		if store.orders[knownID].Status != domain.OrderStatusPending {
			t.Errorf("order should be untouched, got %s", store.orders[knownID].Status)
		}

		req = httptest.NewRequest(http.MethodPost, "/orders/"+knownID+"/cancel?confirm=true", nil)
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if store.orders[knownID].Status != domain.OrderStatusCancelled {
			t.Errorf("expected cancelled, got %s", store.orders[knownID].Status)
		}
	})

	t.Run("mark paid publishes order.paid", func(t *testing.T) {
		store := newFakeStore()
		pub := &recordingPublisher{}
		_, mux := newTestHandler(store, pub)

		req := httptest.NewRequest(http.MethodPost, "/orders/"+knownID+"/paid", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !store.orders[knownID].IsPaid {
			t.Error("expected order to be paid")
		}
		if len(pub.events) != 1 || pub.events[0].Type != domain.EventOrderPaid {
			t.Errorf("expected one order.paid event, got %+v", pub.events)
		}
	})
}
