package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/store"
)

// teamHandler groups event team membership HTTP handlers.
type teamHandler struct {
	store  *store.Store
	events *eventsHandler
}

func newTeamHandler(st *store.Store, events *eventsHandler) *teamHandler {
	return &teamHandler{store: st, events: events}
}

// ListMembers handles GET /api/v1/events/{id}/team.
func (h *teamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	members, err := h.store.GetTeamMembers(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list team members")
		return
	}
	if members == nil {
		members = []*store.TeamMember{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// InviteMember handles POST /api/v1/events/{id}/team. The invitee is looked
// up by email, getting a placeholder account if they have never signed in;
// their first real sign-in later reconciles it onto their provider identity.
func (h *teamHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventManage(w, r, u.ID, eventID) {
		return
	}

	var req struct {
		Email       string            `json:"email"`
		Name        string            `json:"name"`
		Role        string            `json:"role"`
		Permissions store.Permissions `json:"permissions"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "email is required")
		return
	}
	if req.Role != "" && req.Role != "organizer" && req.Role != "member" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "role must be organizer or member")
		return
	}

	invitee, err := h.store.FindOrCreateUserByEmail(r.Context(), req.Email, req.Name, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to resolve invitee")
		return
	}

	member, err := h.store.AddTeamMember(r.Context(), store.AddTeamMemberInput{
		EventID:     eventID,
		UserID:      invitee.ID,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to add team member")
		return
	}

	_ = h.store.RecordActivity(r.Context(), eventID, u.ID, "invite_member", invitee.Email)
	auditLog(r, "invite", "team_member", invitee.ID, "event_id", eventID)

	writeJSON(w, http.StatusCreated, member)
}

// UpdateMember handles PUT /api/v1/events/{id}/team/{userID} — role or
// permission changes for an existing member.
func (h *teamHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")
	if !h.events.requireEventManage(w, r, u.ID, eventID) {
		return
	}

	existing, err := h.store.GetTeamMember(r.Context(), eventID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get team member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "team member not found")
		return
	}

	var req struct {
		Role        string            `json:"role"`
		Permissions store.Permissions `json:"permissions"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	if req.Role != "" && req.Role != "organizer" && req.Role != "member" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "role must be organizer or member")
		return
	}

	member, err := h.store.AddTeamMember(r.Context(), store.AddTeamMemberInput{
		EventID:     eventID,
		UserID:      userID,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update team member")
		return
	}

	auditLog(r, "update", "team_member", userID, "event_id", eventID)

	writeJSON(w, http.StatusOK, member)
}

// RemoveMember handles DELETE /api/v1/events/{id}/team/{userID}.
func (h *teamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userID")
	if !h.events.requireEventManage(w, r, u.ID, eventID) {
		return
	}

	// The owner is not a membership row; refuse rather than silently no-op.
	ev, err := h.store.GetEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get event")
		return
	}
	if ev != nil && ev.OwnerID == userID {
		writeError(w, http.StatusConflict, codeConstraint, "cannot remove the event owner")
		return
	}

	if err := h.store.RemoveTeamMember(r.Context(), eventID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to remove team member")
		return
	}

	_ = h.store.RecordActivity(r.Context(), eventID, u.ID, "remove_member", userID)
	auditLog(r, "remove", "team_member", userID, "event_id", eventID)

	w.WriteHeader(http.StatusNoContent)
}
