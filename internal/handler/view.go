package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

type viewRequest struct {
	Sensor string `json:"sensor"`
	Hours  int    `json:"hours"`
}

type viewResponse struct {
	// Applied is false when the selection was already shown or a newer one
	// overtook it; Result is then what is on display.
	Applied bool            `json:"applied"`
	Result  resolver.Result `json:"result"`
}

// view serves GET /api/view, the chart currently open
func (h *DashboardHandler) view(w http.ResponseWriter, r *http.Request) {
	res, ok := h.session.Chart()
	if !ok {
		writeError(w, h.logger, http.StatusNotFound, "no chart open")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

// selectView serves PUT /api/view. A missing sensor or hours keeps the
// current one.
func (h *DashboardHandler) selectView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, `body must be {"sensor": "TP", "hours": 24}`)
		return
	}

	key, window := h.session.ChartSelection()
	if req.Sensor != "" {
		k, err := models.ParseSensorKey(req.Sensor)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		key = k
	}
	if req.Hours != 0 {
		wd, err := resolver.ParseWindow(req.Hours)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		window = wd
	}
	if key == "" {
		writeError(w, h.logger, http.StatusBadRequest, "sensor is required to open a chart")
		return
	}

	res, applied := h.session.SelectChart(r.Context(), key, window)
	if !applied {
		if cur, ok := h.session.Chart(); ok {
			res = cur
		}
	}
	h.logger.Debug("Chart selected",
		zap.String("sensor", string(key)),
		zap.Int("hours", int(window)),
		zap.Bool("applied", applied),
	)
	writeJSON(w, h.logger, http.StatusOK, viewResponse{Applied: applied, Result: res})
}
