package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tmarchal/chantier/internal/auth"
	"github.com/tmarchal/chantier/internal/metrics"
	"github.com/tmarchal/chantier/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	store   *user.Store
	limiter *loginRateLimiter
	metrics *metrics.Metrics
}

func newAuthHandler(store *user.Store, limiter *loginRateLimiter, m *metrics.Metrics) *authHandler {
	return &authHandler{store: store, limiter: limiter, metrics: m}
}

// sessionLookup adapts the user store to the auth middleware.
type sessionLookup struct {
	store *user.Store
}

func newSessionLookup(store *user.Store) auth.SessionLookup {
	return &sessionLookup{store: store}
}

func (l *sessionLookup) LookupSession(ctx context.Context, token string) (*auth.Caller, error) {
	u, err := l.store.GetSessionUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.Caller{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// Register handles POST /api/v1/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "password must be at least 8 characters")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name is required")
		return
	}

	if _, err := h.store.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "conflict", "an account with this email already exists")
		return
	}

	u, err := h.store.Create(r.Context(), user.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create account")
		return
	}

	token, _, err := h.store.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  publicUser(u),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !h.limiter.allow(ip) {
		h.metrics.IncRateLimitRejection("login")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	u, err := h.store.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		h.metrics.IncAuthFailure("session")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if !user.CheckPassword(u, req.Password) {
		h.metrics.IncAuthFailure("session")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, _, err := h.store.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	h.metrics.IncAuthSuccess("session")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  publicUser(u),
	})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    caller.ID,
		"email": caller.Email,
		"name":  caller.Name,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = h.store.DeleteSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}

func publicUser(u *user.User) map[string]interface{} {
	return map[string]interface{}{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
	}
}

// clientIP strips the port from RemoteAddr, falling back to the raw value.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// loginRateLimiter is a fixed-window counter keyed by client IP, guarding
// the login endpoint against credential stuffing.
type loginRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*loginWindow
	limit    int
	window   time.Duration
	now      func() time.Time
}

type loginWindow struct {
	count   int
	started time.Time
}

func newLoginRateLimiter(limit int, window time.Duration) *loginRateLimiter {
	return &loginRateLimiter{
		attempts: make(map[string]*loginWindow),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (l *loginRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	wdw, ok := l.attempts[key]
	if !ok || now.Sub(wdw.started) >= l.window {
		l.attempts[key] = &loginWindow{count: 1, started: now}
		return true
	}
	if wdw.count >= l.limit {
		return false
	}
	wdw.count++
	return true
}
