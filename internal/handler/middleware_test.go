package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdf-form-drafts/internal/domain"
)

type mockAuthService struct {
	user      *domain.SupabaseUser
	err       error
	lastToken string
}

func (m *mockAuthService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func rejectingHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("expected handler not to be called")
	})
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
		body   string
	}{
		{"missing header", "", nil, "Authorization header required"},
		{"invalid format", "Token abc", nil, "Invalid authorization header format"},
		{"empty token", "Bearer ", nil, "Token required"},
		{"invalid token", "Bearer bad", errors.New("invalid token"), "Invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authService := &mockAuthService{err: tc.err}
			h := NewAuthMiddleware(authService, NewMockHandlerLogger()).Middleware(rejectingHandler(t))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.body) {
				t.Fatalf("unexpected response body: %s", rr.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	authService := &mockAuthService{user: &domain.SupabaseUser{ID: "user-1", Email: "test@example.com"}}

	called := false
	h := NewAuthMiddleware(authService, NewMockHandlerLogger()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		user, ok := GetUserFromContext(r)
		if !ok || user.ID != "user-1" {
			t.Fatalf("expected user in context")
		}
		token, ok := GetTokenFromContext(r)
		if !ok || token != "good" {
			t.Fatalf("expected token in context")
		}
		if access, ok := domain.AccessToken(r.Context()); !ok || access != "good" {
			t.Fatalf("expected access token for repositories, got %q", access)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !called {
		t.Fatalf("expected next handler to be called")
	}
	if authService.lastToken != "good" {
		t.Fatalf("expected token to be validated, got %q", authService.lastToken)
	}
}

func TestHeaderAuthMiddleware(t *testing.T) {
	h := NewHeaderAuthMiddleware(NewMockHandlerLogger()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r)
		if !ok || user.ID != "alice" {
			t.Fatalf("expected alice in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", " alice ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}

	missing := NewHeaderAuthMiddleware(NewMockHandlerLogger()).Middleware(rejectingHandler(t))
	rr = httptest.NewRecorder()
	missing.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRequestLogger_AssignsAndEchoesID(t *testing.T) {
	logger := NewMockHandlerLogger()
	var seen string
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
		w.WriteHeader(http.StatusAccepted)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatalf("expected a generated request id")
	}
	if rr.Header().Get("X-Request-Id") != seen {
		t.Fatalf("expected echoed id %q, got %q", seen, rr.Header().Get("X-Request-Id"))
	}
	if !logger.Has("HTTP request") {
		t.Fatalf("expected request to be logged")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("expected incoming id to be kept, got %q", seen)
	}
}

func withUser(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, &domain.SupabaseUser{ID: id}))
}

func TestExportLimiter_PerUser(t *testing.T) {
	limiter := NewExportLimiter(2, NewMockHandlerLogger())
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "alice"))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "bob"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected a separate bucket for bob, got %d", rr.Code)
	}
}

func TestExportLimiter_Disabled(t *testing.T) {
	limiter := NewExportLimiter(0, NewMockHandlerLogger())
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "alice"))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d limited with limiting disabled", i)
		}
	}
}
