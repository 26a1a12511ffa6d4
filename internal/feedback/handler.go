package feedback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/drinkshop/internal/domain"
	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

type Store interface {
	Create(ctx context.Context, f *domain.Feedback) error
	List(ctx context.Context, limit int) ([]domain.Feedback, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	repo   Store
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(repo Store, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /feedback", telemetry.WithHTTPRoute(h.HandleCreate))
	mux.HandleFunc("GET /feedback", telemetry.WithHTTPRoute(h.HandleList))
	mux.HandleFunc("DELETE /feedback/{id}", telemetry.WithHTTPRoute(h.HandleDelete))
}

type createRequest struct {
	Rating       int    `json:"rating"`
	Text         string `json:"text"`
	OrderID      string `json:"order_id"`
	CustomerName string `json:"customer_name"`
}

func (req createRequest) validate() error {
	if req.Rating < 1 || req.Rating > 5 {
		return domain.NewValidationError("rating", "rating must be between 1 and 5")
	}
	if strings.TrimSpace(req.Text) == "" {
		return domain.NewValidationError("text", "feedback text is required")
	}
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, err.Error())
		return
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = domain.DefaultCustomerName
	}

	f := &domain.Feedback{
		Rating:       req.Rating,
		Text:         strings.TrimSpace(req.Text),
		OrderID:      req.OrderID,
		CustomerName: name,
		CreatedAt:    h.now(),
	}
	if err := h.repo.Create(r.Context(), f); err != nil {
		h.logger.Error("failed to create feedback", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("feedback created", "feedback_id", f.ID, "rating", f.Rating)
	h.writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list feedback", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "feedback not found")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete feedback", "error", err, "id", id)
		h.writeStoreError(w, err)
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, storeerr.CodeNotFound, "feedback not found")
		return
	}

	h.logger.Info("feedback deleted", "feedback_id", id)
	w.WriteHeader(http.StatusNoContent)
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
