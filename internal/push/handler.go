package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

type Store interface {
	Upsert(ctx context.Context, reg *Registration) error
	Targets(ctx context.Context, msg Message) ([]string, error)
}

type Handler struct {
	repo    Store
	metrics *telemetry.Metrics
	logger  *slog.Logger
	now     func() time.Time
	latency func() time.Duration
}

func NewHandler(repo Store, metrics *telemetry.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		latency: func() time.Duration { return time.Duration(20+rand.IntN(81)) * time.Millisecond },
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /tokens", telemetry.WithHTTPRoute(h.HandleRegister))
	mux.HandleFunc("POST /send", telemetry.WithHTTPRoute(h.HandleSend))
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	reg.Token = strings.TrimSpace(reg.Token)
	if reg.Token == "" {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "token is required")
		return
	}
	if reg.Audience == "" {
		reg.Audience = AudienceCustomer
	}
	if !reg.Audience.Valid() {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "audience must be customer or admin")
		return
	}
	reg.UpdatedAt = h.now()

	if err := h.repo.Upsert(r.Context(), &reg); err != nil {
		h.logger.Error("failed to register push token", "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info("push token registered", "audience", reg.Audience, "order_id", reg.OrderID)
	h.writeJSON(w, http.StatusOK, reg)
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "invalid request body")
		return
	}

	if msg.Audience == "" {
		msg.Audience = AudienceCustomer
	}
	switch {
	case !msg.Audience.Valid():
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "audience must be customer or admin")
		return
	case msg.Audience == AudienceCustomer && msg.OrderID == "":
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "order_id is required for customer messages")
		return
	case strings.TrimSpace(msg.Title) == "":
		h.writeError(w, http.StatusBadRequest, storeerr.CodeInvalidArgument, "title is required")
		return
	}

	tokens, err := h.repo.Targets(r.Context(), msg)
	if err != nil {
		h.logger.Error("failed to load push targets", "error", err, "order_id", msg.OrderID)
		h.writeStoreError(w, err)
		return
	}

	for _, token := range tokens {
		if d := h.latency(); d > 0 {
			time.Sleep(d)
		}
		h.logger.Info("push sent", "token", token, "audience", msg.Audience, "order_id", msg.OrderID, "title", msg.Title)
	}
	h.metrics.PushSent(r.Context(), string(msg.Audience), len(tokens))

	h.writeJSON(w, http.StatusOK, SendResult{Delivered: len(tokens)})
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
