package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/auth"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/bands"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/session"
)

// DashboardHandler serves snapshots of the live session. Changes to shared
// state need the monitor role.
type DashboardHandler struct {
	session *session.Session
	authz   *auth.AuthMiddleware
	logger  *zap.Logger
	started time.Time
}

func NewDashboardHandler(s *session.Session, authz *auth.AuthMiddleware, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{session: s, authz: authz, logger: logger, started: time.Now()}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)
	api.HandleFunc("/latest", h.latest).Methods(http.MethodGet)
	api.HandleFunc("/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/sparklines", h.sparklines).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.alerts).Methods(http.MethodGet)
	api.HandleFunc("/toasts", h.toasts).Methods(http.MethodGet)
	api.HandleFunc("/view", h.view).Methods(http.MethodGet)

	control := api.NewRoute().Subrouter()
	control.Use(h.authz.RequireRole(auth.RoleMonitor))
	control.HandleFunc("/toasts/{id}", h.dismissToast).Methods(http.MethodDelete)
	control.HandleFunc("/preferences/sound", h.setSound).Methods(http.MethodPut)
	control.HandleFunc("/view", h.selectView).Methods(http.MethodPut)

	h.logger.Info("Dashboard routes registered")
}

func (h *DashboardHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Connection string  `json:"connection"`
	CacheSize  int     `json:"cache_size"`
	Sound      bool    `json:"sound"`
	Uptime     float64 `json:"uptime_seconds"`
}

func (h *DashboardHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, statusResponse{
		Connection: h.session.Status(),
		CacheSize:  h.session.Cache().Len(),
		Sound:      h.session.Preferences().Sound,
		Uptime:     time.Since(h.started).Seconds(),
	})
}

type latestResponse struct {
	Sample   models.Sample   `json:"sample"`
	Readings []bands.Reading `json:"readings"`
}

func (h *DashboardHandler) latest(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.session.Latest()
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "no reading received yet")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, latestResponse{Sample: sample, Readings: bands.ForSample(sample)})
}

func (h *DashboardHandler) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.session.History())
}

func (h *DashboardHandler) sparklines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.session.Sparklines())
}

func (h *DashboardHandler) alerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.session.Alerts())
}

func (h *DashboardHandler) toasts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.session.Toasts())
}

func (h *DashboardHandler) dismissToast(w http.ResponseWriter, r *http.Request) {
	if !h.session.DismissToast(mux.Vars(r)["id"]) {
		writeError(w, h.logger, http.StatusNotFound, "toast not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type soundRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *DashboardHandler) setSound(w http.ResponseWriter, r *http.Request) {
	var req soundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, h.logger, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}
	h.session.SetSound(*req.Enabled)
	h.logger.Info("Sound preference changed", zap.Bool("enabled", *req.Enabled))
	writeJSON(w, h.logger, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}
