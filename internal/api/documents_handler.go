package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planora/planora/internal/store"
)

// documentsHandler groups document-metadata HTTP handlers. The file bytes
// themselves live in external storage under StorageKey.
type documentsHandler struct {
	store  *store.Store
	events *eventsHandler
}

func newDocumentsHandler(st *store.Store, events *eventsHandler) *documentsHandler {
	return &documentsHandler{store: st, events: events}
}

func (h *documentsHandler) loadDocument(w http.ResponseWriter, r *http.Request, userID string) *store.Document {
	id := chi.URLParam(r, "id")
	d, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to get document")
		return nil
	}
	if d == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "document not found")
		return nil
	}
	if !h.events.requireEventAccess(w, r, userID, d.EventID) {
		return nil
	}
	return d
}

// CreateDocument handles POST /api/v1/events/{id}/documents.
func (h *documentsHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	var in store.CreateDocumentInput
	if err := readJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "failed to parse request body")
		return
	}
	in.EventID = eventID
	in.UploadedByID = u.ID

	if in.Name == "" || in.StorageKey == "" {
		writeError(w, http.StatusUnprocessableEntity, codeValidation, "name and storage_key are required")
		return
	}

	d, err := h.store.CreateDocument(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create document")
		return
	}

	_ = h.store.RecordActivity(r.Context(), eventID, u.ID, "upload_document", d.Name)

	writeJSON(w, http.StatusCreated, d)
}

// ListDocuments handles GET /api/v1/events/{id}/documents.
func (h *documentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	eventID := chi.URLParam(r, "id")
	if !h.events.requireEventAccess(w, r, u.ID, eventID) {
		return
	}

	docs, err := h.store.GetDocumentsByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*store.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *documentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	d := h.loadDocument(w, r, u.ID)
	if d == nil {
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (h *documentsHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	u := currentUser(w, r)
	if u == nil {
		return
	}

	d := h.loadDocument(w, r, u.ID)
	if d == nil {
		return
	}

	if err := h.store.DeleteDocument(r.Context(), d.ID); err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to delete document")
		return
	}

	_ = h.store.RecordActivity(r.Context(), d.EventID, u.ID, "delete_document", d.Name)

	w.WriteHeader(http.StatusNoContent)
}
