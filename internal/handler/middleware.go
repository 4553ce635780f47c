package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"pdf-form-drafts/internal/domain"
)

const (
	userIDHeader    = "X-User-Id"
	requestIDHeader = "X-Request-Id"
)

// AuthMiddleware resolves the calling user. With an AuthService it validates
// Supabase bearer tokens; without one it trusts the X-User-Id header set by
// a gateway in front of the service.
type AuthMiddleware struct {
	authService domain.AuthService
	logger      domain.Logger
}

func NewAuthMiddleware(authService domain.AuthService, logger domain.Logger) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, logger: logger}
}

// NewHeaderAuthMiddleware builds the X-User-Id variant.
func NewHeaderAuthMiddleware(logger domain.Logger) *AuthMiddleware {
	return &AuthMiddleware{logger: logger}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	if m.authService == nil {
		return m.headerAuth(next)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token required")
			return
		}

		user, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Warn("Token validation failed", "error", err, "request_id", GetRequestID(r))
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		ctx = domain.WithAccessToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(userIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, userIDHeader+" header required")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, &domain.SupabaseUser{ID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger assigns a request id (reusing an incoming X-Request-Id),
// echoes it in the response and logs one line per request.
func RequestLogger(logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", id,
			)
		})
	}
}

// ExportLimiter applies a per-user token bucket to export requests.
type ExportLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   domain.Logger
}

// NewExportLimiter allows perMinute exports per user, with bursts of the same
// size. perMinute <= 0 disables limiting.
func NewExportLimiter(perMinute int, logger domain.Logger) *ExportLimiter {
	l := &ExportLimiter{limiters: make(map[string]*rate.Limiter), logger: logger}
	if perMinute <= 0 {
		l.limit = rate.Inf
		return l
	}
	l.limit = rate.Limit(float64(perMinute) / 60)
	l.burst = perMinute
	return l
}

func (l *ExportLimiter) limiterFor(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim
}

func (l *ExportLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "User not found in context")
			return
		}
		if !l.limiterFor(user.ID).Allow() {
			l.logger.Warn("Export rate limit exceeded", "user_id", user.ID, "request_id", GetRequestID(r))
			writeError(w, http.StatusTooManyRequests, "Too many export requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
