package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
)

func TestClient_Submit(t *testing.T) {
	t.Run("returns the stored order", func(t *testing.T) {
		stored := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/orders" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
			}
			var order domain.Order
			if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			order.ID = knownID
			order.CreatedAt = stored
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(order)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		created, err := client.Submit(context.Background(), &domain.Order{Total: 1000, CreatedAt: stored.Add(time.Hour)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.ID != knownID {
			t.Errorf("expected %s, got %s", knownID, created.ID)
		}
		if !created.CreatedAt.Equal(stored) {
			t.Errorf("expected service creation time %v, got %v", stored, created.CreatedAt)
		}
		if created.Total != 1000 {
			t.Errorf("expected total 1000, got %d", created.Total)
		}
	})

	t.Run("classifies service errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"denied","code":"permission-denied"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client())
		_, err := client.Submit(context.Background(), &domain.Order{})
		if got := storeerr.Classify(err); got != storeerr.CodePermissionDenied {
			t.Errorf("expected permission-denied, got %s", got)
		}
	})

	t.Run("unreachable service is a network failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client := NewClient(url, &http.Client{})
		_, err := client.Submit(context.Background(), &domain.Order{})
		if got := storeerr.Classify(err); got != storeerr.CodeNetworkRequestFailed {
			t.Errorf("expected network-request-failed, got %s (%v)", got, err)
		}
	})

	t.Run("honours context deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		client := NewClient(server.URL, server.Client())
		_, err := client.Submit(ctx, &domain.Order{})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if got := storeerr.Classify(err); got != storeerr.CodeDeadlineExceeded {
			t.Errorf("expected deadline-exceeded, got %s", got)
		}
	})
}

func TestClient_ListOrders(t *testing.T) {
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != "2025-03-01T00:00:00Z" {
			t.Errorf("unexpected since %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"a","status":"pending"},{"id":"b","status":"completed"}]`))
	}))
	defer server.Close()

	orders, err := NewClient(server.URL, server.Client()).ListOrders(context.Background(), since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 || orders[1].Status != domain.OrderStatusCompleted {
		t.Errorf("unexpected orders %+v", orders)
	}
}

func TestClient_ListFeedback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feedback" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`[{"id":"f1","rating":5,"text":"ngon"}]`))
	}))
	defer server.Close()

	feedback, err := NewClient(server.URL, server.Client()).ListFeedback(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Rating != 5 {
		t.Errorf("unexpected feedback %+v", feedback)
	}
}
