package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

// Store is the persistence the handler needs. *OrderRepository implements it.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, f ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	Advance(ctx context.Context, id string) (*domain.Order, error)
	MarkPaid(ctx context.Context, id string) (*domain.Order, error)
}

// EventPublisher emits order lifecycle events. May be nil when Kafka is not
// configured.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type Handler struct {
	repo      Store
	publisher EventPublisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(repo Store, publisher EventPublisher, metrics *telemetry.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register mounts the order routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(h.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(h.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(h.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(h.HandleUpdateStatus))
	mux.HandleFunc("POST /orders/{id}/advance", telemetry.WithHTTPRoute(h.HandleAdvance))
	mux.HandleFunc("POST /orders/{id}/paid", telemetry.WithHTTPRoute(h.HandleMarkPaid))
	mux.HandleFunc("POST /orders/{id}/cancel", telemetry.WithHTTPRoute(h.HandleCancel))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	if err := order.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}

	order.ID = ""
	order.Status = domain.OrderStatusPending
	order.IsPaid = false
	order.CreatedAt = h.now()
	order.UpdatedAt, order.PaidAt, order.CancelledAt = nil, nil, nil
	if order.AppliedDiscount != nil {
		order.AppliedDiscount.Amount = order.DiscountAmount
	}

	if err := h.repo.Create(r.Context(), &order); err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.metrics.OrderSubmitted(r.Context(), string(order.Customer.Type), order.Total)
	h.publish(r.Context(), domain.EventOrderCreated, &order)

	h.logger.Info("order created", "order_id", order.ID, "order_type", order.Customer.Type, "total", order.Total)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeStoreError(w, err)
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter

	if s := r.URL.Query().Get("status"); s != "" {
		status, err := domain.ParseStatus(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
			return
		}
		filter.Status = status
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "since must be RFC3339")
			return
		}
		filter.Since = since
	}

	orders, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateStatus accepts any known status. Staff may move orders
// backwards, so no transition rule is enforced here.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}

	h.changeStatus(w, r, id, "update order status", func(ctx context.Context) (*domain.Order, error) {
		return h.repo.UpdateStatus(ctx, id, status)
	})
}

func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	h.changeStatus(w, r, id, "advance order", func(ctx context.Context) (*domain.Order, error) {
		return h.repo.Advance(ctx, id)
	})
}

// HandleCancel requires ?confirm=true; cancelling cannot be undone from the
// admin screen.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		h.writeError(w, http.StatusPreconditionRequired, storeerr.CodeFailedPrecondition, "cancellation requires confirm=true")
		return
	}

	h.changeStatus(w, r, id, "cancel order", func(ctx context.Context) (*domain.Order, error) {
		return h.repo.UpdateStatus(ctx, id, domain.OrderStatusCancelled)
	})
}

func (h *Handler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.repo.MarkPaid(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to mark order paid", "error", err, "id", id)
		h.writeStoreError(w, err)
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "order not found")
		return
	}

	h.publish(r.Context(), domain.EventOrderPaid, order)

	h.logger.Info("order marked paid", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, id, op string, apply func(context.Context) (*domain.Order, error)) {
	order, err := apply(r.Context())
	if errors.Is(err, ErrTerminalStatus) {
		h.writeError(w, http.StatusConflict, storeerr.CodeFailedPrecondition, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to "+op, "error", err, "id", id)
		h.writeStoreError(w, err)
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "order not found")
		return
	}

	h.metrics.StatusChanged(r.Context(), string(order.Status))
	h.publish(r.Context(), domain.EventOrderStatusChanged, order)

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

// publish is best effort: the order is already stored, so a broker failure
// is logged and the request still succeeds.
func (h *Handler) publish(ctx context.Context, t domain.EventType, order *domain.Order) {
	if h.publisher == nil {
		return
	}
	event := domain.NewOrderEvent(t, order, h.now())
	if err := h.publisher.PublishOrderEvent(ctx, event); err != nil {
		h.logger.Error("failed to publish order event", "error", err, "order_id", order.ID, "type", t)
	}
}

// orderID rejects ids that are not uuids as not found; they cannot exist.
func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "missing order id")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "order not found")
		return "", false
	}
	return id, true
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

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	code := storeerr.Classify(err)
	h.writeError(w, storeerr.HTTPStatus(code), code, code.Message())
}
