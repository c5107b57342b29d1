package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

// RangeHandler answers chart range queries
type RangeHandler struct {
	resolver *resolver.Resolver
	logger   *zap.Logger
}

func NewRangeHandler(r *resolver.Resolver, logger *zap.Logger) *RangeHandler {
	return &RangeHandler{resolver: r, logger: logger}
}

func (h *RangeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/range/{sensor}", h.resolve).Methods(http.MethodGet)
	h.logger.Info("Range routes registered")
}

// resolve serves GET /api/range/{sensor}?hours=N, hours defaulting to 24.
// An empty range is a 200 with source "none" and null stats.
func (h *RangeHandler) resolve(w http.ResponseWriter, r *http.Request) {
	key, err := models.ParseSensorKey(mux.Vars(r)["sensor"])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if hours, err = strconv.Atoi(raw); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "hours must be an integer")
			return
		}
	}
	window, err := resolver.ParseWindow(hours)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.resolver.Resolve(r.Context(), key, window))
}
