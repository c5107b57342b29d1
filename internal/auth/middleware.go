package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const callerContextKey contextKey = "caller"

// Caller is the authenticated client of the local API
type Caller struct {
	Subject string
	Role    string
}

// AuthMiddleware guards the local API with bearer tokens. With no manager
// configured every request passes.
type AuthMiddleware struct {
	jwtManager *JWTManager
	logger     *zap.Logger
	public     map[string]bool
}

func NewAuthMiddleware(jwtManager *JWTManager, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		logger:     logger,
		public:     map[string]bool{"/health": true, "/metrics": true},
	}
}

// Authenticate validates the Authorization header of non-public paths
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.jwtManager == nil || m.public[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			m.logger.Warn("Invalid token", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), callerContextKey, &Caller{
			Subject: claims.Subject,
			Role:    claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the caller stored by Authenticate, or nil
func CallerFromContext(ctx context.Context) *Caller {
	caller, _ := ctx.Value(callerContextKey).(*Caller)
	return caller
}

// RequireRole admits callers holding one of roles. It must run after
// Authenticate. With no manager configured every request passes.
func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil || m.jwtManager == nil || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			caller := CallerFromContext(r.Context())
			if caller == nil {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, caller.Role) {
				m.logger.Warn("Role not allowed",
					zap.String("path", r.URL.Path),
					zap.String("subject", caller.Subject),
					zap.String("role", caller.Role),
				)
				http.Error(w, "Insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
