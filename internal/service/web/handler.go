package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"liuproxy_pool/internal/shared/logger"
	manager "liuproxy_pool/proxypool"
	"liuproxy_pool/proxypool/model"
	"liuproxy_pool/proxypool/store"
)

// PoolController defines what the web handler needs from the proxy pool.
// This decouples the web package from the manager's lifecycle.
type PoolController interface {
	Status() manager.Status
	GetAllProxies() []model.ProxyRecord
	RandomProxy() (model.ProxyRecord, error)
	DeleteProxy(candidate string) bool
}

type Handler struct {
	controller PoolController
}

func NewHandler(controller PoolController) *Handler {
	return &Handler{controller: controller}
}

// HandleStatus 处理 GET / 请求
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Status())
}

// HandleProxies 处理 GET /proxies 请求
func (h *Handler) HandleProxies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.GetAllProxies())
}

// HandleRandomProxy 处理 GET /proxies/random 请求，池为空时返回 404。
func (h *Handler) HandleRandomProxy(w http.ResponseWriter, r *http.Request) {
	proxy, err := h.controller.RandomProxy()
	if err != nil {
		if errors.Is(err, store.ErrEmpty) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, proxy)
}

// HandleDeleteProxy 处理 POST /proxies/{candidate}/delete 请求，幂等。
func (h *Handler) HandleDeleteProxy(w http.ResponseWriter, r *http.Request) {
	candidate := r.PathValue("candidate")
	if candidate == "" {
		http.Error(w, "Candidate is missing in URL path", http.StatusBadRequest)
		return
	}
	h.controller.DeleteProxy(candidate)
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := logger.WithComponent("Web")
		l.Warn().Err(err).Msg("Failed to write JSON response.")
	}
}
