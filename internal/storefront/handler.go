package storefront

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/drinkshop/internal/cart"
	"github.com/joao-fontenele/drinkshop/internal/checkout"
	"github.com/joao-fontenele/drinkshop/internal/discount"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/menu"
	"github.com/joao-fontenele/drinkshop/internal/notify"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
	"github.com/joao-fontenele/drinkshop/internal/tracker"
)

const defaultRecentNotifications = 20

type Handler struct {
	ctrl   *Controller
	logger *slog.Logger
}

func NewHandler(ctrl *Controller, logger *slog.Logger) *Handler {
	return &Handler{
		ctrl:   ctrl,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /catalog", telemetry.WithHTTPRoute(h.HandleCatalog))
	mux.HandleFunc("GET /toppings", telemetry.WithHTTPRoute(h.HandleToppings))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(h.HandleCart))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(h.HandleAddItem))
	mux.HandleFunc("PATCH /cart/items/{index}", telemetry.WithHTTPRoute(h.HandleUpdateLine))
	mux.HandleFunc("DELETE /cart/items/{index}", telemetry.WithHTTPRoute(h.HandleRemoveLine))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(h.HandleClearCart))
	mux.HandleFunc("POST /cart/discount", telemetry.WithHTTPRoute(h.HandleApplyDiscount))
	mux.HandleFunc("DELETE /cart/discount", telemetry.WithHTTPRoute(h.HandleRemoveDiscount))
	mux.HandleFunc("GET /checkout/customer", telemetry.WithHTTPRoute(h.HandleSavedCustomer))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(h.HandleCheckout))
	mux.HandleFunc("GET /tracking", telemetry.WithHTTPRoute(h.HandleTracking))
	mux.HandleFunc("GET /notifications", telemetry.WithHTTPRoute(h.HandleNotifications))
	mux.HandleFunc("DELETE /notifications/{id}", telemetry.WithHTTPRoute(h.HandleDismiss))
	mux.HandleFunc("POST /push/register", telemetry.WithHTTPRoute(h.HandleRegisterPush))
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	f, err := menu.ParseFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctrl.Catalog(f))
}

func (h *Handler) HandleToppings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ctrl.Toppings())
}

func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ctrl.Cart())
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	view, err := h.ctrl.AddItem(r.Context(), req)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

type updateLineRequest struct {
	Delta    *int `json:"delta"`
	Quantity *int `json:"quantity"`
}

func (h *Handler) HandleUpdateLine(w http.ResponseWriter, r *http.Request) {
	index, ok := h.lineIndex(w, r)
	if !ok {
		return
	}

	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	view, err := h.ctrl.UpdateLine(r.Context(), index, req.Delta, req.Quantity)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleRemoveLine(w http.ResponseWriter, r *http.Request) {
	index, ok := h.lineIndex(w, r)
	if !ok {
		return
	}

	view, err := h.ctrl.RemoveLine(r.Context(), index)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.ClearCart(r.Context(), r.URL.Query().Get("confirm") == "true")
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

type discountRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	view, err := h.ctrl.ApplyDiscount(r.Context(), req.Code)
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleRemoveDiscount(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.RemoveDiscount(r.Context())
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleSavedCustomer(w http.ResponseWriter, r *http.Request) {
	info, ok, err := h.ctrl.SavedCustomer(r.Context())
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	order, err := h.ctrl.Checkout(r.Context(), req)
	if err != nil {
		h.logger.Error("checkout failed", "error", err)
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

type trackingResponse struct {
	Current tracker.Progress   `json:"current"`
	History []tracker.Progress `json:"history"`
}

func (h *Handler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	current, history, err := h.ctrl.Tracking()
	if err != nil {
		h.writeControllerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trackingResponse{Current: current, History: history})
}

type notificationsResponse struct {
	Active []notify.Notification `json:"active"`
	Recent []notify.Notification `json:"recent"`
}

func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentNotifications
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	active, recent := h.ctrl.Notifications(limit)
	h.writeJSON(w, http.StatusOK, notificationsResponse{Active: active, Recent: recent})
}

func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || !h.ctrl.DismissNotification(id) {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerPushRequest struct {
	Token string `json:"token"`
}

func (h *Handler) HandleRegisterPush(w http.ResponseWriter, r *http.Request) {
	var req registerPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	if err := h.ctrl.RegisterPush(r.Context(), req.Token); err != nil {
		h.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "cart line not found")
		return 0, false
	}
	return index, true
}

func (h *Handler) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
	case errors.Is(err, ErrItemNotFound), errors.Is(err, cart.ErrLineNotFound), errors.Is(err, ErrNoTrackedOrder):
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, err.Error())
	case errors.Is(err, discount.ErrUnknownCode):
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, err.Error())
	case errors.Is(err, ErrItemUnavailable), errors.Is(err, discount.ErrMinimumNotMet), errors.Is(err, checkout.ErrEmptyCart):
		h.writeError(w, http.StatusUnprocessableEntity, storeerr.CodeFailedPrecondition, err.Error())
	case errors.Is(err, ErrConfirmationRequired):
		h.writeError(w, http.StatusPreconditionRequired, storeerr.CodeFailedPrecondition, err.Error())
	case errors.Is(err, checkout.ErrSubmitInProgress):
		h.writeError(w, http.StatusConflict, storeerr.CodeAborted, err.Error())
	default:
		h.logger.Error("storefront request failed", "error", err)
		code := storeerr.Classify(err)
		h.writeError(w, storeerr.HTTPStatus(code), code, code.Message())
	}
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
