package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// CORSMiddleware lets browser dashboards on other origins read the status API
type CORSMiddleware struct {
	AllowedOrigins []string
	logger         *zap.Logger
}

func NewCORSMiddleware(allowedOrigins []string, logger *zap.Logger) *CORSMiddleware {
	return &CORSMiddleware{AllowedOrigins: allowedOrigins, logger: logger}
}

// EnableCORS wraps next. An empty origin list allows any origin.
func (m *CORSMiddleware) EnableCORS(next http.Handler) http.Handler {
	origins := m.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	m.logger.Debug("CORS enabled", zap.Strings("allowed_origins", origins))
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
		handlers.MaxAge(86400),
	)(next)
}
