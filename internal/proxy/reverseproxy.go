// Package proxy forwards status API calls under /upstream/ to the data
// service, signing them on the way.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/remote"
)

// Prefix is stripped before forwarding
const Prefix = "/upstream"

// UpstreamProxy is a read-only passthrough to the data service API
type UpstreamProxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// NewUpstreamProxy targets baseURL. token, when set, signs each forwarded
// request and replaces any Authorization header the caller sent.
func NewUpstreamProxy(baseURL string, timeout time.Duration, token func() (string, error), logger *zap.Logger) (*UpstreamProxy, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream URL %q needs a scheme and host", baseURL)
	}
	logger = logger.With(zap.String("component", "proxy"), zap.String("target_host", target.Host))

	p := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
			pr.Out.URL.Path = "/" + strings.TrimLeft(strings.TrimPrefix(pr.In.URL.Path, Prefix), "/")
			pr.Out.URL.RawPath = ""
			pr.Out.Header.Del("Authorization")
			if token != nil {
				if t, err := token(); err == nil {
					pr.Out.Header.Set("Authorization", "Bearer "+t)
				} else {
					logger.Warn("Could not sign upstream request", zap.Error(err))
				}
			}
			logger.Debug("Forwarding request",
				zap.String("method", pr.In.Method),
				zap.String("path", pr.Out.URL.Path),
			)
		},
		Transport: remote.NewTransport(timeout),
		ModifyResponse: func(resp *http.Response) error {
			// the local API sets its own CORS headers
			for _, h := range []string{
				"Access-Control-Allow-Origin",
				"Access-Control-Allow-Methods",
				"Access-Control-Allow-Headers",
				"Access-Control-Allow-Credentials",
				"Access-Control-Expose-Headers",
				"Access-Control-Max-Age",
			} {
				resp.Header.Del(h)
			}
			resp.Header.Set("X-Proxied-By", "agrisense")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			status := http.StatusBadGateway
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				status = http.StatusGatewayTimeout
			}
			logger.Error("Proxy error occurred",
				zap.String("request_url", r.URL.String()),
				zap.Int("status", status),
				zap.Error(err),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "Data service temporarily unavailable",
				"details": err.Error(),
			})
		},
	}

	return &UpstreamProxy{target: target, proxy: p, logger: logger}, nil
}

// ServeHTTP forwards reads only
func (p *UpstreamProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p.proxy.ServeHTTP(w, r)
}
