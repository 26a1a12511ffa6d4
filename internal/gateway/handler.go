package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/drinkshop/internal/storeerr"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

// copiedHeaders are passed back from the upstream response.
var copiedHeaders = []string{"Content-Type", "Content-Disposition"}

type Handler struct {
	ordersProxy *ServiceProxy
	menuProxy   *ServiceProxy
	adminProxy  *ServiceProxy
	logger      *slog.Logger
}

func NewHandler(ordersProxy, menuProxy, adminProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy: ordersProxy,
		menuProxy:   menuProxy,
		adminProxy:  adminProxy,
		logger:      logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	orders := telemetry.WithHTTPRoute(h.HandleOrders)
	for _, pattern := range []string{"/orders", "/orders/", "/feedback", "/feedback/"} {
		mux.HandleFunc(pattern, orders)
	}

	menu := telemetry.WithHTTPRoute(h.HandleMenu)
	for _, pattern := range []string{"/menu", "/menu/", "/promotions", "/promotions/"} {
		mux.HandleFunc(pattern, menu)
	}

	admin := telemetry.WithHTTPRoute(h.HandleAdmin)
	for _, pattern := range []string{"GET /reports/", "GET /dashboard", "GET /summary"} {
		mux.HandleFunc(pattern, admin)
	}
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.menuProxy, r.URL.Path)
}

func (h *Handler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.adminProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, name := range copiedHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message, "code": string(storeerr.CodeUnavailable)}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
