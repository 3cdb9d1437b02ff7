package api

import (
	"errors"
	"net/http"

	"github.com/planora/planora/internal/auth"
	"github.com/planora/planora/internal/metrics"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	svc     *auth.Service
	metrics *metrics.Metrics
}

func newAuthHandler(svc *auth.Service, m *metrics.Metrics) *authHandler {
	return &authHandler{svc: svc, metrics: m}
}

func (h *authHandler) countAuth(ok bool, authType string) {
	if h.metrics == nil {
		return
	}
	if ok {
		h.metrics.IncAuthSuccess(authType)
	} else {
		h.metrics.IncAuthFailure(authType)
	}
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "email and password are required")
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.countAuth(false, "login")
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to log in")
		return
	}
	h.countAuth(true, "login")

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  u,
	})
}

// Register handles POST /api/v1/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}

	token, u, err := h.svc.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.countAuth(false, "register")
		writeError(w, http.StatusUnprocessableEntity, codeValidation, err.Error())
		return
	}
	h.countAuth(true, "register")

	auditLog(r, "register", "user", u.ID, "email", u.Email)

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  u,
	})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
