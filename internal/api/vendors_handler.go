package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/store"
)

// vendorsHandler groups vendor-related HTTP handlers.
type vendorsHandler struct {
	store  *store.Store
	events *eventsHandler
}

func newVendorsHandler(st *store.Store, events *eventsHandler) *vendorsHandler {
	return &vendorsHandler{store: st, events: events}
}

func (h *vendorsHandler) loadVendor(w http.ResponseWriter, r *http.Request, userID string) *store.Vendor {
	id := chi.URLParam(r, "id")
	v, err := h.store.GetVendor(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get vendor")
		return nil
	}
	if v == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "vendor not found")
		return nil
	}
	if !h.events.requireEventAccess(w, r, userID, v.EventID) {
		return nil
	}
	return v
}

// CreateVendor handles POST /api/v1/events/{id}/vendors.
func (h *vendorsHandler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	var in store.CreateVendorInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	in.EventID = eventID

	if in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "name is required")
		return
	}

	v, err := h.store.CreateVendor(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create vendor")
		return
	}

	_ = h.store.RecordActivity(r.Context(), eventID, u.ID, "create_vendor", v.Name)

	writeJSON(w, http.StatusCreated, v)
}

// ListVendors handles GET /api/v1/events/{id}/vendors.
func (h *vendorsHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	vendors, err := h.store.GetVendorsByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list vendors")
		return
	}
	if vendors == nil {
		vendors = []*store.Vendor{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"vendors": vendors})
}

// GetVendor handles GET /api/v1/vendors/{id}.
func (h *vendorsHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	v := h.loadVendor(w, r, u.ID)
	if v == nil {
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// UpdateVendor handles PUT /api/v1/vendors/{id}.
func (h *vendorsHandler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	v := h.loadVendor(w, r, u.ID)
	if v == nil {
		return
	}

	var in store.UpdateVendorInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}

	updated, err := h.store.UpdateVendor(r.Context(), v.ID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update vendor")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "vendor not found")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteVendor handles DELETE /api/v1/vendors/{id}.
func (h *vendorsHandler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	v := h.loadVendor(w, r, u.ID)
	if v == nil {
		return
	}

	if err := h.store.DeleteVendor(r.Context(), v.ID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete vendor")
		return
	}

	_ = h.store.RecordActivity(r.Context(), v.EventID, u.ID, "delete_vendor", v.Name)

	w.WriteHeader(http.StatusNoContent)
}
