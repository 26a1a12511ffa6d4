package menu

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/drinkshop/internal/catalog"
	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

type ItemStore interface {
	List(ctx context.Context, f catalog.Filter) ([]domain.CatalogItem, error)
	Get(ctx context.Context, id int) (*domain.CatalogItem, error)
	Create(ctx context.Context, item *domain.CatalogItem) error
	Update(ctx context.Context, item *domain.CatalogItem) (bool, error)
	ToggleAvailability(ctx context.Context, id int) (*domain.CatalogItem, error)
	Delete(ctx context.Context, id int) (bool, error)
}

type PromotionStore interface {
	List(ctx context.Context) ([]domain.Promotion, error)
	Current(ctx context.Context, now time.Time) (*domain.Promotion, error)
	Create(ctx context.Context, p *domain.Promotion) error
	Update(ctx context.Context, p *domain.Promotion) (bool, error)
	Toggle(ctx context.Context, id string) (*domain.Promotion, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	items      ItemStore
	promotions PromotionStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewHandler(items ItemStore, promotions PromotionStore, logger *slog.Logger) *Handler {
	return &Handler{
		items:      items,
		promotions: promotions,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /menu", telemetry.WithHTTPRoute(h.HandleListItems))
	mux.HandleFunc("POST /menu", telemetry.WithHTTPRoute(h.HandleCreateItem))
	mux.HandleFunc("GET /menu/{id}", telemetry.WithHTTPRoute(h.HandleGetItem))
	mux.HandleFunc("PUT /menu/{id}", telemetry.WithHTTPRoute(h.HandleUpdateItem))
	mux.HandleFunc("POST /menu/{id}/toggle", telemetry.WithHTTPRoute(h.HandleToggleItem))
	mux.HandleFunc("DELETE /menu/{id}", telemetry.WithHTTPRoute(h.HandleDeleteItem))

	mux.HandleFunc("GET /promotions", telemetry.WithHTTPRoute(h.HandleListPromotions))
	mux.HandleFunc("GET /promotions/current", telemetry.WithHTTPRoute(h.HandleCurrentPromotion))
	mux.HandleFunc("POST /promotions", telemetry.WithHTTPRoute(h.HandleCreatePromotion))
	mux.HandleFunc("PUT /promotions/{id}", telemetry.WithHTTPRoute(h.HandleUpdatePromotion))
	mux.HandleFunc("POST /promotions/{id}/toggle", telemetry.WithHTTPRoute(h.HandleTogglePromotion))
	mux.HandleFunc("DELETE /promotions/{id}", telemetry.WithHTTPRoute(h.HandleDeletePromotion))
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}

	items, err := h.items.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list menu items", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("menu listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get menu item", "error", err, "item_id", id)
		h.writeStoreError(w, err)
		return
	}
	if item == nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "item not found")
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

type itemRequest struct {
	Name        string          `json:"name"`
	Price       int64           `json:"price"`
	Category    domain.Category `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Available   *bool           `json:"available"`
}

func (req itemRequest) toItem() (domain.CatalogItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CatalogItem{}, domain.NewValidationError("name", "name is required")
	}
	if !req.Category.Valid() {
		return domain.CatalogItem{}, domain.NewValidationError("category", "unknown category")
	}
	if req.Price <= 0 {
		return domain.CatalogItem{}, domain.NewValidationError("price", "price must be positive")
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return domain.CatalogItem{
		Name:        name,
		Price:       req.Price,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		Available:   available,
	}, nil
}

func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}
	item, err := req.toItem()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}

	if err := h.items.Create(r.Context(), &item); err != nil {
		h.logger.Error("failed to create menu item", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("menu item created", "item_id", item.ID, "name", item.Name)
	h.writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}
	item, err := req.toItem()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}
	item.ID = id

	found, err := h.items.Update(r.Context(), &item)
	if err != nil {
		h.logger.Error("failed to update menu item", "error", err, "item_id", id)
		h.writeStoreError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "item not found")
		return
	}

	h.logger.Info("menu item updated", "item_id", id)
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.items.ToggleAvailability(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to toggle menu item", "error", err, "item_id", id)
		h.writeStoreError(w, err)
		return
	}
	if item == nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "item not found")
		return
	}

	h.logger.Info("menu item toggled", "item_id", id, "available", item.Available)
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	found, err := h.items.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete menu item", "error", err, "item_id", id)
		h.writeStoreError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "item not found")
		return
	}

	h.logger.Info("menu item deleted", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.promotions.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list promotions", "error", err)
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, promotions)
}

// HandleCurrentPromotion responds 204 when no promotion is running.
func (h *Handler) HandleCurrentPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promotions.Current(r.Context(), h.now())
	if err != nil {
		h.logger.Error("failed to get current promotion", "error", err)
		h.writeStoreError(w, err)
		return
	}
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

type promotionRequest struct {
	Name      string              `json:"name"`
	Code      string              `json:"code"`
	Type      domain.DiscountType `json:"type"`
	Value     int64               `json:"value"`
	MinOrder  int64               `json:"min_order"`
	StartDate time.Time           `json:"start_date"`
	EndDate   time.Time           `json:"end_date"`
	Active    *bool               `json:"active"`
}

func (req promotionRequest) toPromotion() (domain.Promotion, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Promotion{}, domain.NewValidationError("name", "name is required")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.Promotion{}, domain.NewValidationError("code", "code is required")
	}
	switch req.Type {
	case domain.DiscountPercentage:
		if req.Value > 100 {
			return domain.Promotion{}, domain.NewValidationError("value", "percentage cannot exceed 100")
		}
	case domain.DiscountFixed:
	default:
		return domain.Promotion{}, domain.NewValidationError("type", "type must be percentage or fixed")
	}
	if req.Value <= 0 {
		return domain.Promotion{}, domain.NewValidationError("value", "value is required")
	}
	if req.MinOrder < 0 {
		return domain.Promotion{}, domain.NewValidationError("min_order", "minimum order cannot be negative")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.StartDate.Before(req.EndDate) {
		return domain.Promotion{}, domain.NewValidationError("end_date", "start date must be before end date")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return domain.Promotion{
		Name:      name,
		Code:      code,
		Type:      req.Type,
		Value:     req.Value,
		MinOrder:  req.MinOrder,
		StartDate: req.StartDate.UTC(),
		EndDate:   req.EndDate.UTC(),
		Active:    active,
	}, nil
}

func (h *Handler) HandleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}
	p, err := req.toPromotion()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}
	p.CreatedAt = h.now()
	p.UpdatedAt = p.CreatedAt

	if err := h.promotions.Create(r.Context(), &p); err != nil {
		h.logger.Error("failed to create promotion", "error", err, "code", p.Code)
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("promotion created", "promotion_id", p.ID, "code", p.Code)
	h.writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleUpdatePromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.promotionID(w, r)
	if !ok {
		return
	}

	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}
	p, err := req.toPromotion()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}
	p.ID = id
	p.UpdatedAt = h.now()

	found, err := h.promotions.Update(r.Context(), &p)
	if err != nil {
		h.logger.Error("failed to update promotion", "error", err, "promotion_id", id)
		h.writeStoreError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "promotion not found")
		return
	}

	h.logger.Info("promotion updated", "promotion_id", id)
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleTogglePromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.promotionID(w, r)
	if !ok {
		return
	}

	p, err := h.promotions.Toggle(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to toggle promotion", "error", err, "promotion_id", id)
		h.writeStoreError(w, err)
		return
	}
	if p == nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "promotion not found")
		return
	}

	h.logger.Info("promotion toggled", "promotion_id", id, "active", p.Active)
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleDeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.promotionID(w, r)
	if !ok {
		return
	}

	found, err := h.promotions.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete promotion", "error", err, "promotion_id", id)
		h.writeStoreError(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "promotion not found")
		return
	}

	h.logger.Info("promotion deleted", "promotion_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ParseFilter reads ?category= and ?min_rating=.
func ParseFilter(r *http.Request) (catalog.Filter, error) {
	var f catalog.Filter
	if c := r.URL.Query().Get("category"); c != "" {
		f.Category = domain.Category(c)
		if !f.Category.Valid() {
			return catalog.Filter{}, domain.NewValidationError("category", "unknown category")
		}
	}
	if s := r.URL.Query().Get("min_rating"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return catalog.Filter{}, domain.NewValidationError("min_rating", "min_rating must be a non-negative number")
		}
		f.MinRating = v
	}
	return f, nil
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "item not found")
		return 0, false
	}
	return id, true
}

func (h *Handler) promotionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "promotion not found")
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
