package handler

import (
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/proxy"
)

// UpstreamHandler exposes the data service API through the status API
type UpstreamHandler struct {
	proxy  *proxy.UpstreamProxy
	logger *zap.Logger
}

func NewUpstreamHandler(p *proxy.UpstreamProxy, logger *zap.Logger) *UpstreamHandler {
	return &UpstreamHandler{proxy: p, logger: logger}
}

// RegisterRoutes mounts the passthrough under /upstream/
func (h *UpstreamHandler) RegisterRoutes(router *mux.Router) {
	router.PathPrefix(proxy.Prefix + "/").Handler(h.proxy)
	h.logger.Info("Upstream routes registered", zap.String("prefix", proxy.Prefix+"/"))
}
