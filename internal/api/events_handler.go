package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/auth"
	"github.com/planora/planora/internal/store"
)

// eventsHandler groups event-related HTTP handlers.
type eventsHandler struct {
	store *store.Store
}

func newEventsHandler(st *store.Store) *eventsHandler {
	return &eventsHandler{store: st}
}

// currentUser pulls the authenticated user from the request context, writing
// a 401 and returning nil if absent.
func currentUser(w http.ResponseWriter, r *http.Request) *store.User {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return nil
	}
	return u
}

// requireEventAccess checks that the user may read the event. Missing events
// and denied access both get a 404, so outsiders cannot probe for existence.
func (h *eventsHandler) requireEventAccess(w http.ResponseWriter, r *http.Request, userID, eventID string) bool {
	ok, err := h.store.HasUserAccessToEvent(r.Context(), userID, eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to check event access")
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "event not found")
		return false
	}
	return true
}

// requireEventManage checks that the user may mutate the event's structure.
func (h *eventsHandler) requireEventManage(w http.ResponseWriter, r *http.Request, userID, eventID string) bool {
	if !h.requireEventAccess(w, r, userID, eventID) {
		return false
	}
	ok, err := h.store.CanManageEvent(r.Context(), userID, eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to check event access")
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, codeForbidden, "you cannot manage this event")
		return false
	}
	return true
}

// CreateEvent handles POST /api/v1/events.
func (h *eventsHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	var in store.CreateEventInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	in.OwnerID = u.ID

	if in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "name is required")
		return
	}

	ev, err := h.store.CreateEvent(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create event")
		return
	}

	_ = h.store.RecordActivity(r.Context(), ev.ID, u.ID, "create_event", ev.Name)
	auditLog(r, "create", "event", ev.ID, "name", ev.Name)

	writeJSON(w, http.StatusCreated, ev)
}

// ListEvents handles GET /api/v1/events — events the user owns or belongs to.
func (h *eventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	events, err := h.store.GetEventsByUser(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// GetEvent handles GET /api/v1/events/{id}.
func (h *eventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.requireEventAccess(w, r, u.ID, id) {
		return
	}

	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get event")
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

// UpdateEvent handles PUT /api/v1/events/{id}.
func (h *eventsHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.requireEventManage(w, r, u.ID, id) {
		return
	}

	var in store.UpdateEventInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}

	ev, err := h.store.UpdateEvent(r.Context(), id, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update event")
		return
	}
	if ev == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "event not found")
		return
	}

	_ = h.store.RecordActivity(r.Context(), id, u.ID, "update_event", "")
	auditLog(r, "update", "event", id)

	writeJSON(w, http.StatusOK, ev)
}

// DeleteEvent handles DELETE /api/v1/events/{id}.
func (h *eventsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.requireEventManage(w, r, u.ID, id) {
		return
	}

	if err := h.store.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete event")
		return
	}

	auditLog(r, "delete", "event", id)

	w.WriteHeader(http.StatusNoContent)
}

// GetActivity handles GET /api/v1/events/{id}/activity.
func (h *eventsHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.requireEventAccess(w, r, u.ID, id) {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = l
	}

	entries, err := h.store.GetActivityByEvent(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get activity")
		return
	}
	if entries == nil {
		entries = []*store.ActivityEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}
