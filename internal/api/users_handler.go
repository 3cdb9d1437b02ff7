package api

import (
	"net/http"

	"github.com/planora/planora/internal/store"
)

// usersHandler groups profile HTTP handlers.
type usersHandler struct {
	store *store.Store
}

func newUsersHandler(st *store.Store) *usersHandler {
	return &usersHandler{store: st}
}

// GetMe handles GET /api/v1/users/me.
func (h *usersHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe handles PUT /api/v1/users/me — partial profile updates.
func (h *usersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	var in store.UpdateUserInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	if in.Email != nil && *in.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "email must not be empty")
		return
	}

	updated, err := h.store.UpdateUser(r.Context(), u.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update profile")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "user not found")
		return
	}

	auditLog(r, "update", "user", u.ID)

	writeJSON(w, http.StatusOK, updated)
}
